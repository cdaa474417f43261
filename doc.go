/*
Package flowboard is the editing core of a visual builder for conversational
agent flows.

A flow is a directed graph of typed nodes (interactive messages, language
models, inputs, API calls, knowledge bases and engines) joined by edges between
named handles. The Editor ties together the pieces a front end needs:

  - a graph store with atomic mutations and change notifications,
  - a typed intent bus so node affordances can request mutations,
  - validation of node configs and button values,
  - a persistence pipeline that serializes the graph and saves it as a whole
    document, one save in flight at a time.

# Usage

	ed, err := flowboard.New("agent-42", flowboard.WithRepository(repo))
	if err != nil {
		log.Fatal(err)
	}
	defer ed.Close()

	if err := ed.Load(ctx); err != nil {
		// the store is empty; offer a retry
	}

	id, _ := ed.Store().AddNode(domain.KindMessage, domain.Position{X: 100, Y: 50})
	_ = ed.Store().UpdateConfig(id, map[string]any{"headerText": "Welcome"})

	if err := ed.Save(ctx); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			// show verr.Results next to the offending fields
		}
	}
*/
package flowboard
