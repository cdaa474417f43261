/*
Package domain contains the core domain models of the flow graph editor.

It defines the vertices and connections of an agent workflow and the wire
document used to persist it. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: A typed vertex (message, languageModel, input, apiLibrary, knowledgeBase, engine).
  - Config: The kind-specific payload of a Node, a closed tagged union.
  - Edge: A directed connection between an output handle and an input handle.
  - Change: A description of what a single mutation did, delivered to subscribers.
  - FlowDocument: The canonical JSON snapshot persisted by the storage service.
*/
package domain
