/*
Package domain contains the core types shared by every layer of Wayfarer.

It is kept free of I/O and external dependencies, following Hexagonal
Architecture principles.

# Key Entities

  - Status: the coarse state of a session (idle, processing, waiting_input, complete, error).
  - LifecycleHooks: callbacks fired by the flow engine as it enters, leaves and retries nodes.
  - Error taxonomy: GraphConfigurationError, NodeExecutionError, ParseError,
    CollaboratorUnavailable and ProviderError, plus sentinel errors.
  - Trip types: SearchResult, Place and TripInfo, exchanged with collaborators.
*/
package domain
