/*
Package dsl provides a fluent builder for constructing flow documents in Go.

It is useful for seeding storage, for tests, and for generating flows from
code. Build runs the result through the graph store, so a built flow obeys
the same limits and connection rules as one edited interactively.

Example usage:

	b := dsl.New()

	b.Message("welcome").
		Label("Welcome").
		Text("<p>Hi! How can we help?</p>").
		Section("Menu").
		Button("Talk to us", domain.ActionConnectToNode, "").
		Button("Email", domain.ActionSendEmail, "help@example.com")

	b.Node(domain.KindLanguageModel, "assistant").
		Set("model", "gpt-4o").
		At(400, 0)

	b.Connect("welcome", connection.ButtonHandle(0, 0), "assistant", "")

	doc, err := b.Build()
*/
package dsl
