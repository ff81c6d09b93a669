/*
Package ports defines the driven ports (interfaces) of Wayfarer.

These interfaces decouple the core from external implementations, so the
flow and session layers work with any model provider, search backend or
storage backend.

# Key Interfaces

  - Completer, Searcher, PlaceLookup: the collaborators the travel nodes call.
  - SnapshotStore: persists session snapshots (memory, file or Redis).
  - TripArchive: stores finished plans.
  - DistributedLocker: serializes runs of one session across replicas.
*/
package ports
