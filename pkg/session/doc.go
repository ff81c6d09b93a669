/*
Package session implements sessions and their registry.

A Session owns one conversation: the message history, the shared flow Store
that carries state between runs, and the event Emitter its runs report
through. The Registry is the process-wide owner of sessions. It can persist
snapshots to a ports.SnapshotStore so that sessions survive restarts, and
serializes runs per session with reference-counted locks, optionally backed
by a ports.DistributedLocker for multi-replica deployments.
*/
package session
