package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/flowboard/pkg/connection"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wireExample = `{
  "nodes": [
    { "id": "message-1700000000000", "type": "message", "position": {"x":100,"y":50},
      "data": { "label": "Welcome", "message": "<p>Hello</p>", "headerText": "Hi",
                "buttonListTitle": "Pick one", "footer": "bye",
                "sections": [ { "id":"s1","sectionName":"Main",
                  "buttons":[ {"id":"b1","label":"Go","actionType":"connect_to_node"},
                              {"id":"b2","label":"Mail","actionType":"send_email","actionValue":"a@b.com"} ] } ],
                "isMinimized": true } },
    { "id": "languageModel-1700000000001", "type": "languageModel", "position": {"x":400,"y":50},
      "data": { "label": "LLM", "model": "gpt", "temperature": 0.2, "maxTokens": 256 } },
    { "id": "knowledgeBase-1700000000002", "type": "knowledgeBase", "position": {"x":400,"y":250},
      "data": { "label": "Docs", "knowledgeBaseId": "kb-1", "topK": 5 } }
  ],
  "edges": [
    { "source":"message-1700000000000","sourceHandle":"section-0-button-0",
      "target":"languageModel-1700000000001","targetHandle":"input" },
    { "source":"knowledgeBase-1700000000002","sourceHandle":"output",
      "target":"languageModel-1700000000001","targetHandle":"knowledge-base" }
  ]
}`

func buildFlow(t *testing.T) *flow.Store {
	t.Helper()
	now := time.UnixMilli(1700000000000)
	seq := 0
	s := flow.NewStore(
		flow.WithClock(func() time.Time { return now }),
		flow.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)

	msg, err := s.AddNode(domain.KindMessage, domain.Position{X: 10, Y: 10})
	require.NoError(t, err)
	require.NoError(t, s.UpdateConfig(msg, map[string]any{"message": "<b>hi</b>", "headerText": "Header"}))
	_, err = s.AddSection(msg, "Main")
	require.NoError(t, err)
	_, err = s.AddButton(msg, 0, "Next", domain.ActionConnectToNode, "")
	require.NoError(t, err)
	_, err = s.AddButton(msg, 0, "Site", domain.ActionOpenURL, "https://example.com")
	require.NoError(t, err)

	lm, err := s.AddNode(domain.KindLanguageModel, domain.Position{X: 300, Y: 10})
	require.NoError(t, err)
	require.NoError(t, s.UpdateConfig(lm, map[string]any{"model": "m", "maxTokens": 100}))
	kb, err := s.AddNode(domain.KindKnowledgeBase, domain.Position{X: 300, Y: 200})
	require.NoError(t, err)
	in, err := s.AddNode(domain.KindInput, domain.Position{X: 600, Y: 10})
	require.NoError(t, err)
	require.NoError(t, s.SetMinimized(in, true))
	api, err := s.AddNode(domain.KindAPILibrary, domain.Position{X: 900, Y: 10})
	require.NoError(t, err)
	_, err = s.AddNode(domain.KindEngine, domain.Position{X: 1200, Y: 10})
	require.NoError(t, err)

	_, err = s.Connect(msg, connection.ButtonHandle(0, 0), lm, "")
	require.NoError(t, err)
	_, err = s.Connect(kb, "", lm, connection.HandleKnowledgeBase)
	require.NoError(t, err)
	_, err = s.Connect(lm, "", in, "")
	require.NoError(t, err)
	_, err = s.Connect(in, "", api, "")
	require.NoError(t, err)
	return s
}

func TestRoundTrip(t *testing.T) {
	c := NewCodec()
	original := buildFlow(t).Snapshot()

	doc, err := c.Serialize(original)
	require.NoError(t, err)

	data, err := c.Encode(doc)
	require.NoError(t, err)
	decoded, err := c.Decode(data)
	require.NoError(t, err)

	restored, err := c.Deserialize(decoded)
	require.NoError(t, err)

	opts := cmp.Options{
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreFields(domain.Edge{}, "Style"),
	}
	if diff := cmp.Diff(original, restored, opts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeFlattensData(t *testing.T) {
	c := NewCodec()
	doc, err := c.Serialize(buildFlow(t).Snapshot())
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(doc.Nodes[0].Data, &data))
	assert.Equal(t, "message", doc.Nodes[0].Type)
	assert.Equal(t, "Message", data["label"])
	assert.Equal(t, "<b>hi</b>", data["message"])
	assert.Equal(t, "Header", data["headerText"])
	assert.NotContains(t, data, "isMinimized")
	assert.NotContains(t, data, "footer")

	sections := data["sections"].([]any)
	buttons := sections[0].(map[string]any)["buttons"].([]any)
	assert.Equal(t, "connect_to_node", buttons[0].(map[string]any)["actionType"])

	var input map[string]any
	require.NoError(t, json.Unmarshal(doc.Nodes[3].Data, &input))
	assert.Equal(t, true, input["isMinimized"])

	assert.Equal(t, "knowledgeBase", doc.Edges[1].Type)
	assert.Empty(t, doc.Edges[0].Type)
	assert.Equal(t, domain.EdgeID(doc.Edges[0].Source, doc.Edges[0].SourceHandle, doc.Edges[0].Target, doc.Edges[0].TargetHandle), doc.Edges[0].ID)
}

func TestDecodeWireExample(t *testing.T) {
	c := NewCodec()
	doc, err := c.Decode([]byte(wireExample))
	require.NoError(t, err)

	snap, err := c.Deserialize(doc)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 2)

	msg := snap.Nodes[0]
	assert.Equal(t, "Welcome", msg.Label)
	assert.True(t, msg.IsMinimized)
	cfg := msg.Config.(*domain.MessageConfig)
	assert.Equal(t, "Pick one", cfg.ButtonListTitle)
	require.Len(t, cfg.Sections[0].Buttons, 2)
	assert.Equal(t, domain.ActionSendEmail, cfg.Sections[0].Buttons[1].ActionType)
	assert.Equal(t, "a@b.com", cfg.Sections[0].Buttons[1].ActionValue)

	lm := snap.Nodes[1].Config.(*domain.LanguageModelConfig)
	assert.Equal(t, 256, lm.MaxTokens)
	assert.InDelta(t, 0.2, lm.Temperature, 1e-9)

	kb := snap.Nodes[2].Config.(*domain.KnowledgeBaseConfig)
	assert.Equal(t, 5, kb.TopK)

	assert.Equal(t, domain.EdgeKnowledgeBase, snap.Edges[1].Kind)
}

func TestDeserializeDiscardsBadEdges(t *testing.T) {
	var logs bytes.Buffer
	c := NewCodec(WithCodecLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	doc := &domain.FlowDocument{
		Nodes: []domain.NodeDocument{
			{ID: "a", Type: "input", Data: json.RawMessage(`{"label":"A"}`)},
			{ID: "b", Type: "engine", Data: json.RawMessage(`{"label":"B"}`)},
		},
		Edges: []domain.EdgeDocument{
			{Source: "a", SourceHandle: "output", Target: "b", TargetHandle: "input"},
			{Source: "a", SourceHandle: "output", Target: "ghost", TargetHandle: "input"},
			{Source: "ghost", SourceHandle: "output", Target: "b", TargetHandle: "input"},
			{Source: "a", SourceHandle: "section-0-button-0", Target: "b", TargetHandle: "input"},
			{Source: "a", Target: "b"},
		},
	}

	snap, err := c.Deserialize(doc)
	require.NoError(t, err)
	require.Len(t, snap.Edges, 1, "invalid edges dropped, default handles deduplicated")
	assert.Equal(t, "b", snap.Edges[0].Target)
	assert.Contains(t, logs.String(), "discarding edge")
	assert.Contains(t, logs.String(), "unknown target node")
}

func TestDeserializeNodes(t *testing.T) {
	c := NewCodec()

	_, err := c.Deserialize(&domain.FlowDocument{Nodes: []domain.NodeDocument{{ID: "x", Type: "webhook"}}})
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	_, err = c.Deserialize(&domain.FlowDocument{Nodes: []domain.NodeDocument{
		{ID: "x", Type: "engine"}, {ID: "x", Type: "engine"},
	}})
	assert.ErrorIs(t, err, ErrMalformedDocument)

	snap, err := c.Deserialize(&domain.FlowDocument{Nodes: []domain.NodeDocument{
		{ID: "kb", Type: "knowledgeBase", Data: json.RawMessage(`{"colour":"red"}`)},
		{ID: "m", Type: "message", Data: json.RawMessage(`{"sections":[{"sectionName":"S","buttons":[{"label":"B","actionType":"open_url"}]}]}`)},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Knowledge Base", snap.Nodes[0].Label, "missing label falls back to the kind default")
	assert.Equal(t, 3, snap.Nodes[0].Config.(*domain.KnowledgeBaseConfig).TopK)

	msg := snap.Nodes[1].Config.(*domain.MessageConfig)
	assert.NotEmpty(t, msg.Sections[0].ID, "missing section ids are filled")
	assert.NotEmpty(t, msg.Sections[0].Buttons[0].ID, "missing button ids are filled")
}

func TestDeserializeChecksFieldTypes(t *testing.T) {
	var logs bytes.Buffer
	c := NewCodec(WithCodecLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	_, err := c.Deserialize(&domain.FlowDocument{Nodes: []domain.NodeDocument{
		{ID: "lm", Type: "languageModel", Data: json.RawMessage(`{"maxTokens":1.5}`)},
	}})
	require.ErrorIs(t, err, ErrMalformedDocument, "a fraction must not be truncated into an int field")
	assert.Contains(t, err.Error(), "maxTokens")

	snap, err := c.Deserialize(&domain.FlowDocument{Nodes: []domain.NodeDocument{
		{ID: "lm", Type: "languageModel", Data: json.RawMessage(`{"maxTokens":256,"temperature":9}`)},
	}})
	require.NoError(t, err, "out of range values load so they can be fixed")
	lm := snap.Nodes[0].Config.(*domain.LanguageModelConfig)
	assert.Equal(t, 9.0, lm.Temperature)
	assert.Equal(t, 256, lm.MaxTokens)
	assert.Contains(t, logs.String(), "field=temperature")
}

func TestDecodeRejectsMalformed(t *testing.T) {
	c := NewCodec()
	tests := map[string]string{
		"not json":      `{`,
		"missing edges": `{"nodes":[]}`,
		"node id type":  `{"nodes":[{"id":1,"type":"engine","position":{"x":0,"y":0}}],"edges":[]}`,
		"no position":   `{"nodes":[{"id":"a","type":"engine"}],"edges":[]}`,
		"edge source":   `{"nodes":[],"edges":[{"target":"b"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode([]byte(raw))
			require.ErrorIs(t, err, ErrMalformedDocument)
			var serr *StructureError
			assert.ErrorAs(t, err, &serr)
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	c := NewCodec()

	doc, err := c.DecodeEnvelope([]byte(`{"id":"agent-1","flowData":null}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)

	doc, err = c.DecodeEnvelope([]byte(`{"flowData":` + wireExample + `}`))
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 3)
}
