package dsl

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/flowboard/pkg/connection"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	b.Message("welcome").
		Label("Welcome").
		Text("<p>Hi!</p>").
		Section("Menu").
		Button("Chat", domain.ActionConnectToNode, "").
		Button("Call", domain.ActionCallNumber, "+1 (555) 010-0000")

	b.Node(domain.KindLanguageModel, "assistant").
		Set("model", "gpt-4o").
		Set("temperature", 0.2).
		At(400, 0)

	b.Node(domain.KindKnowledgeBase, "docs").
		Minimized().
		At(400, 200)

	b.Connect("welcome", connection.ButtonHandle(0, 0), "assistant", "").
		Connect("docs", "", "assistant", connection.HandleKnowledgeBase)

	doc, err := b.Build()
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Edges, 2)

	assert.Equal(t, "welcome", doc.Nodes[0].ID)
	var data map[string]any
	require.NoError(t, json.Unmarshal(doc.Nodes[0].Data, &data))
	assert.Equal(t, "Welcome", data["label"])
	assert.Equal(t, "<p>Hi!</p>", data["message"])

	require.NoError(t, json.Unmarshal(doc.Nodes[1].Data, &data))
	assert.Equal(t, "gpt-4o", data["model"])
	assert.InDelta(t, 0.2, data["temperature"], 1e-9)
	assert.Equal(t, domain.Position{X: 400, Y: 0}, doc.Nodes[1].Position)

	assert.Contains(t, string(doc.Nodes[2].Data), `"isMinimized":true`)
	assert.Equal(t, string(domain.EdgeKnowledgeBase), doc.Edges[1].Type)
}

func TestBuilder_InvalidButtonValue(t *testing.T) {
	b := New()
	b.Message("m").Button("Mail", domain.ActionSendEmail, "nobody")

	_, err := b.Build()
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"sections[0].buttons[0].actionValue"}, verr.Fields())
}

func TestBuilder_HeaderTooLong(t *testing.T) {
	b := New()
	b.Message("m").Header(strings.Repeat("x", domain.MaxHeaderTextLen+1))

	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		b := New()
		b.Node("teleport", "x")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrUnknownKind)
	})

	t.Run("message fields on another kind", func(t *testing.T) {
		b := New()
		b.Node(domain.KindEngine, "e").Text("hello")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		b := New()
		b.Message("m")
		b.Connect("m", "", "ghost", "")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidEndpoint)
	})

	t.Run("handle the node does not expose", func(t *testing.T) {
		b := New()
		b.Message("m")
		b.Node(domain.KindEngine, "e")
		b.Connect("m", "", "e", connection.HandleKnowledgeBase)
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidEndpoint)
	})
}

func TestBuilder_SameIDReturnsSameNode(t *testing.T) {
	b := New()
	first := b.Message("m").Label("One")
	again := b.Message("m")
	assert.Same(t, first, again)

	n, err := again.Build()
	require.NoError(t, err)
	assert.Equal(t, "One", n.Label)
}
