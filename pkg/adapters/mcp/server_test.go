package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/flowboard/pkg/adapters/memory"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/ports"
	"github.com/aretw0/flowboard/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(memory.NewRepository())
	return NewServer(sessions), sessions
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestEditingTools(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"agent_id": "agent", "kind": "message", "x": 10.0, "y": 20.0}
	msg, err := s.handleAddNode(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Nodes)
	require.NotEmpty(t, msg.ID)

	args = map[string]any{"agent_id": "agent", "kind": "engine"}
	eng, err := s.handleAddNode(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, 2, eng.Nodes)

	args = map[string]any{"agent_id": "agent", "source": msg.ID, "target": eng.ID}
	edge, err := s.handleConnect(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, 1, edge.Edges)

	args = map[string]any{"agent_id": "agent", "node_id": msg.ID, "label": "Greeting"}
	_, err = s.handleRenameNode(ctx, call(args), args)
	require.NoError(t, err)

	args = map[string]any{"agent_id": "agent", "node_id": msg.ID}
	dup, err := s.handleDuplicateNode(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, 3, dup.Nodes)
	assert.Equal(t, 1, dup.Edges, "duplicates do not copy edges")

	doc, err := sessions.Load(ctx, "agent")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	assert.Contains(t, string(doc.Nodes[0].Data), `"label":"Greeting"`)

	args = map[string]any{"agent_id": "agent", "node_id": msg.ID}
	del, err := s.handleDeleteNode(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, 2, del.Nodes)
	assert.Equal(t, 0, del.Edges)
}

func TestUpdateConfigRejectsInvalidFlow(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"agent_id": "agent", "kind": "apiLibrary"}
	api, err := s.handleAddNode(ctx, call(args), args)
	require.NoError(t, err)

	args = map[string]any{"agent_id": "agent", "node_id": api.ID, "patch": `{"endpoint":"not a url"}`}
	_, err = s.handleUpdateConfig(ctx, call(args), args)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	doc, err := sessions.Load(ctx, "agent")
	require.NoError(t, err)
	assert.NotContains(t, string(doc.Nodes[0].Data), "not a url", "rejected edit must not be stored")

	args = map[string]any{"agent_id": "agent", "node_id": api.ID, "patch": `{"endpoint":"https://api.example.com/v1"}`}
	_, err = s.handleUpdateConfig(ctx, call(args), args)
	require.NoError(t, err)
}

func TestEditAllowedDespiteStoredFailure(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()

	doc := ports.ContractDocument()
	doc.Nodes[0].Data = json.RawMessage(`{"label":"Mail","sections":[{"id":"s1","sectionName":"A","buttons":[` +
		`{"id":"b1","label":"Write","actionType":"send_email","actionValue":"not-an-email"}]}]}`)
	doc.Edges = nil
	require.NoError(t, sessions.Save(ctx, "agent", doc))

	args := map[string]any{"agent_id": "agent", "node_id": "engine-1700000000001", "label": "Finish"}
	_, err := s.handleRenameNode(ctx, call(args), args)
	require.NoError(t, err, "an unrelated stored failure does not block edits")

	stored, err := sessions.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Contains(t, string(stored.Nodes[1].Data), "Finish")

	args = map[string]any{"agent_id": "agent", "node_id": "message-1700000000000",
		"patch": `{"headerText":"` + strings.Repeat("h", 61) + `"}`}
	_, err = s.handleUpdateConfig(ctx, call(args), args)
	assert.ErrorIs(t, err, domain.ErrValidationFailed, "a new failure is still rejected")
}

func TestUpdateConfigBadPatch(t *testing.T) {
	s, _ := newTestServer(t)
	args := map[string]any{"agent_id": "agent", "node_id": "x", "patch": `[1,2]`}
	_, err := s.handleUpdateConfig(context.Background(), call(args), args)
	assert.Error(t, err)
}

func TestAddNodeUnknownKind(t *testing.T) {
	s, _ := newTestServer(t)
	args := map[string]any{"agent_id": "agent", "kind": "teleport"}
	_, err := s.handleAddNode(context.Background(), call(args), args)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestValidateAndRead(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, "agent", ports.ContractDocument()))

	args := map[string]any{"agent_id": "agent"}
	v, err := s.handleValidate(ctx, call(args), args)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)

	res, err := s.handleGetFlow(ctx, call(args))
	require.NoError(t, err)
	var env domain.AgentFlow
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &env))
	assert.Equal(t, "agent", env.AgentID)
	assert.Len(t, env.FlowData.Nodes, 2)

	res, err = s.handleGetGraph(ctx, call(args))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "graph LR")

	res, err = s.handleListFlows(ctx, call(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `["agent"]`, resultText(t, res))
}

func TestGetFlowMissing(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleGetFlow(context.Background(), call(map[string]any{"agent_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRenameNodeStripsControlCharacters(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"agent_id": "agent", "kind": "engine"}
	eng, err := s.handleAddNode(ctx, call(args), args)
	require.NoError(t, err)

	args = map[string]any{"agent_id": "agent", "node_id": eng.ID, "label": "\x1b[31mEngine\x07"}
	_, err = s.handleRenameNode(ctx, call(args), args)
	require.NoError(t, err)

	doc, err := sessions.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Contains(t, string(doc.Nodes[0].Data), `"label":"[31mEngine"`)
}

func TestSaveFlow(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()

	data, err := json.Marshal(ports.ContractDocument())
	require.NoError(t, err)
	args := map[string]any{"agent_id": "agent", "flow": string(data)}
	res, err := s.handleSaveFlow(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Nodes)
	assert.Equal(t, 1, res.Edges)

	doc, err := sessions.Load(ctx, "agent")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
}

func TestSaveFlowRejectsInvalid(t *testing.T) {
	s, sessions := newTestServer(t)
	ctx := context.Background()

	doc := ports.ContractDocument()
	doc.Nodes[0].Data = json.RawMessage(`{"label":"Mail","sections":[{"id":"s1","sectionName":"A","buttons":[` +
		`{"id":"b1","label":"Write","actionType":"send_email","actionValue":"not-an-email"}]}]}`)
	doc.Edges = nil
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	args := map[string]any{"agent_id": "agent", "flow": string(data)}
	_, err = s.handleSaveFlow(ctx, call(args), args)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = sessions.Load(ctx, "agent")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	args = map[string]any{"agent_id": "agent", "flow": `{"nodes":{}}`}
	_, err = s.handleSaveFlow(ctx, call(args), args)
	assert.Error(t, err)
}
