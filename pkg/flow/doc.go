// Package flow holds the authoritative in-memory graph of one agent flow.
//
// The Store owns every node and edge. All mutations are atomic: they either
// apply completely or leave the graph untouched. After a successful mutation
// subscribers receive a domain.Change describing exactly what moved, so a
// renderer can redraw incrementally.
//
// Edges are kept consistent with the nodes at all times:
//
//   - an edge always references two existing nodes;
//   - deleting a node removes every edge touching it;
//   - an edge always leaves a handle its source currently exposes. When a
//     config change moves or removes a button, edges on that button follow it
//     (matched by button id) or are removed.
package flow
