/*
Package ports defines the driven ports (interfaces) of the flow editor.

These interfaces decouple the graph engine from storage and coordination
backends, so the same editor can persist through the collaborator REST
service, a local directory, Redis or SQLite.

# Key Interfaces

  - FlowRepository: loads and replaces whole flow documents, keyed by agent id.
  - DistributedLocker: serializes writers of the same agent across replicas.
*/
package ports
