// Package mcp exposes stored flows as Model Context Protocol tools, so an
// assistant can inspect and edit an agent's flow.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/flowboard"
	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/internal/presentation/graph"
	"github.com/aretw0/flowboard/internal/sanitize"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/aretw0/flowboard/pkg/persistence"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/session"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ValidateResponse is the structured result of validate_flow.
type ValidateResponse struct {
	Valid  bool                `json:"valid" jsonschema_description:"True when every node passes validation"`
	Errors []validation.Result `json:"errors" jsonschema_description:"Failing checks, one per node field"`
}

// MutationResponse is the structured result of the editing tools.
type MutationResponse struct {
	AgentID string `json:"agentId" jsonschema_description:"The agent whose flow was changed"`
	ID      string `json:"id,omitempty" jsonschema_description:"Id of the created node or edge, if any"`
	Nodes   int    `json:"nodes" jsonschema_description:"Node count after the change"`
	Edges   int    `json:"edges" jsonschema_description:"Edge count after the change"`
}

// Server exposes a session manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	reg       *registry.Registry
	codec     *persistence.Codec
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the node type registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Server) {
		s.reg = reg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("flowboard-mcp", strings.TrimSpace(flowboard.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = registry.Default()
	}
	s.codec = persistence.NewCodec(persistence.WithCodecRegistry(s.reg), persistence.WithCodecLogger(s.logger))
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	agent := mcp.WithString("agent_id", mcp.Required(), mcp.Description("The agent whose flow is addressed"))

	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List the agents that have a stored flow."),
	), s.handleListFlows)

	s.mcpServer.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Get the stored flow document of an agent."),
		agent,
	), s.handleGetFlow)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render an agent's flow as a Mermaid flowchart. Invalid nodes are highlighted."),
		agent,
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Validate every node of an agent's flow."),
		agent,
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("save_flow",
		mcp.WithDescription("Replace an agent's flow with a whole document. Rejected if any node fails validation."),
		agent,
		mcp.WithString("flow", mcp.Required(), mcp.Description(`Flow document JSON: {"nodes":[...],"edges":[...]}`)),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleSaveFlow))

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node with default configuration."),
		agent,
		mcp.WithString("kind", mcp.Required(), mcp.Description("Node kind"),
			mcp.Enum(kindNames(s.reg)...)),
		mcp.WithNumber("x", mcp.Description("Horizontal position")),
		mcp.WithNumber("y", mcp.Description("Vertical position")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleAddNode))

	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node and every edge touching it."),
		agent,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to delete")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeleteNode))

	s.mcpServer.AddTool(mcp.NewTool("duplicate_node",
		mcp.WithDescription("Copy a node's configuration into a new node next to it. Edges are not copied."),
		agent,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to copy")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleDuplicateNode))

	s.mcpServer.AddTool(mcp.NewTool("rename_node",
		mcp.WithDescription("Change a node's label."),
		agent,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to rename")),
		mcp.WithString("label", mcp.Required(), mcp.Description("New label")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleRenameNode))

	s.mcpServer.AddTool(mcp.NewTool("update_config",
		mcp.WithDescription("Merge fields into a node's configuration."),
		agent,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to update")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON object of configuration fields")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleUpdateConfig))

	s.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Connect a source handle to a target handle."),
		agent,
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node id")),
		mcp.WithString("source_handle", mcp.Description("Source handle, e.g. output or section-0-button-1")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithString("target_handle", mcp.Description("Target handle, e.g. input or knowledge-base")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("disconnect",
		mcp.WithDescription("Remove an edge."),
		agent,
		mcp.WithString("edge_id", mcp.Required(), mcp.Description("Edge to remove")),
		mcp.WithOutputSchema[MutationResponse](),
	), mcp.NewStructuredToolHandler(s.handleDisconnect))
}

func kindNames(reg *registry.Registry) []string {
	kinds := reg.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agents, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if agents == nil {
		agents = []string{}
	}
	jsonBytes, _ := json.Marshal(agents)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.sessions.Load(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(domain.AgentFlow{AgentID: agentID, FlowData: doc})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var invalid []string
	for _, r := range validation.NewEngine(s.reg).ValidateNodes(snap.Nodes) {
		invalid = append(invalid, r.NodeID)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(snap, &graph.Overlay{InvalidNodes: invalid})), nil
}

func (s *Server) snapshot(ctx context.Context, agentID string) (flow.Snapshot, error) {
	doc, err := s.sessions.Load(ctx, agentID)
	if err != nil {
		return flow.Snapshot{}, fmt.Errorf("load failed: %w", err)
	}
	snap, err := s.codec.Deserialize(doc)
	if err != nil {
		return flow.Snapshot{}, fmt.Errorf("stored flow is invalid: %w", err)
	}
	return snap, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	agentID, _ := args["agent_id"].(string)
	snap, err := s.snapshot(ctx, agentID)
	if err != nil {
		return ValidateResponse{}, err
	}
	results := validation.NewEngine(s.reg).ValidateNodes(snap.Nodes)
	if results == nil {
		results = []validation.Result{}
	}
	return ValidateResponse{Valid: len(results) == 0, Errors: results}, nil
}

// edit loads the agent's flow into a graph store, applies fn and saves the
// result. The edit is rejected if it introduces a validation failure;
// failures already stored elsewhere in the flow do not block it.
func (s *Server) edit(ctx context.Context, agentID string, fn func(*flow.Store) (string, error)) (MutationResponse, error) {
	if agentID == "" {
		return MutationResponse{}, errors.New("agent_id is required")
	}
	var created string
	doc, err := s.sessions.Update(ctx, agentID, func(doc *domain.FlowDocument) (*domain.FlowDocument, error) {
		snap, err := s.codec.Deserialize(doc)
		if err != nil {
			return nil, err
		}
		store := flow.NewStore(flow.WithRegistry(s.reg), flow.WithLogger(s.logger))
		if err := store.Restore(snap); err != nil {
			return nil, err
		}
		before := store.Validate()
		if created, err = fn(store); err != nil {
			return nil, err
		}
		if err := validation.AsError(introduced(before, store.Validate())); err != nil {
			return nil, err
		}
		return s.codec.Serialize(store.Snapshot())
	})
	if err != nil {
		s.logger.Warn("MCP edit rejected", "agent_id", agentID, "err", err)
		return MutationResponse{}, err
	}
	return MutationResponse{AgentID: agentID, ID: created, Nodes: len(doc.Nodes), Edges: len(doc.Edges)}, nil
}

// introduced returns the results of after that were not already in before.
func introduced(before, after []validation.Result) []validation.Result {
	known := make(map[validation.Result]bool, len(before))
	for _, r := range before {
		known[r] = true
	}
	var out []validation.Result
	for _, r := range after {
		if !known[r] {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) handleSaveFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	if agentID == "" {
		return MutationResponse{}, errors.New("agent_id is required")
	}
	raw, err := sanitize.Text(request.GetString("flow", ""))
	if err != nil {
		return MutationResponse{}, err
	}
	doc, err := s.codec.Decode([]byte(raw))
	if err != nil {
		return MutationResponse{}, err
	}
	snap, err := s.codec.Deserialize(doc)
	if err != nil {
		return MutationResponse{}, err
	}
	if err := validation.AsError(validation.NewEngine(s.reg).ValidateNodes(snap.Nodes)); err != nil {
		return MutationResponse{}, err
	}
	if doc, err = s.codec.Serialize(snap); err != nil {
		return MutationResponse{}, err
	}
	if err := s.sessions.Save(ctx, agentID, doc); err != nil {
		s.logger.Warn("MCP save failed", "agent_id", agentID, "err", err)
		return MutationResponse{}, err
	}
	return MutationResponse{AgentID: agentID, Nodes: len(doc.Nodes), Edges: len(doc.Edges)}, nil
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	kind, err := domain.ParseKind(request.GetString("kind", ""))
	if err != nil {
		return MutationResponse{}, err
	}
	pos := domain.Position{X: request.GetFloat("x", 0), Y: request.GetFloat("y", 0)}
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return st.AddNode(kind, pos)
	})
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	nodeID := request.GetString("node_id", "")
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return "", st.DeleteNode(nodeID)
	})
}

func (s *Server) handleDuplicateNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	nodeID := request.GetString("node_id", "")
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return st.DuplicateNode(nodeID)
	})
}

func (s *Server) handleRenameNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	nodeID := request.GetString("node_id", "")
	label, err := sanitize.Text(request.GetString("label", ""))
	if err != nil {
		return MutationResponse{}, err
	}
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return "", st.RenameNode(nodeID, label)
	})
}

func (s *Server) handleUpdateConfig(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	nodeID := request.GetString("node_id", "")

	raw, err := sanitize.Text(request.GetString("patch", ""))
	if err != nil {
		return MutationResponse{}, err
	}
	var patch map[string]any
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return MutationResponse{}, fmt.Errorf("patch must be a JSON object: %w", err)
	}
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return "", st.UpdateConfig(nodeID, patch)
	})
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	source := request.GetString("source", "")
	sourceHandle := request.GetString("source_handle", "")
	target := request.GetString("target", "")
	targetHandle := request.GetString("target_handle", "")
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return st.Connect(source, sourceHandle, target, targetHandle)
	})
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	agentID, _ := args["agent_id"].(string)
	edgeID := request.GetString("edge_id", "")
	return s.edit(ctx, agentID, func(st *flow.Store) (string, error) {
		return "", st.Disconnect(edgeID)
	})
}

func (s *Server) registerResources() {
	// EXPOSE: flowboard://kinds
	s.mcpServer.AddResource(mcp.NewResource("flowboard://kinds", "Node kinds and their configuration schema",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		out := make(map[string]any)
		for _, k := range s.reg.Kinds() {
			sch, err := s.reg.Schema(k)
			if err != nil {
				return nil, err
			}
			out[string(k)] = sch
		}
		jsonBytes, _ := json.Marshal(out)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "flowboard://kinds",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
