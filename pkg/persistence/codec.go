package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/flowboard/internal/logging"
	"github.com/aretw0/flowboard/pkg/connection"
	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/aretw0/flowboard/pkg/registry"
	"github.com/aretw0/flowboard/pkg/schema"
	"github.com/google/uuid"
)

// Codec converts between flow snapshots and FlowDocuments.
type Codec struct {
	reg    *registry.Registry
	logger *slog.Logger
	newID  func() string
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCodecRegistry sets the registry used to decode node configs.
func WithCodecRegistry(reg *registry.Registry) CodecOption {
	return func(c *Codec) {
		c.reg = reg
	}
}

// WithCodecLogger sets the logger that receives discarded-edge warnings.
func WithCodecLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		c.logger = logger
	}
}

// NewCodec creates a codec over registry.Default().
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		reg:    registry.Default(),
		logger: logging.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serialize converts a snapshot into its wire document.
func (c *Codec) Serialize(snap flow.Snapshot) (*domain.FlowDocument, error) {
	doc := &domain.FlowDocument{
		Nodes: make([]domain.NodeDocument, 0, len(snap.Nodes)),
		Edges: make([]domain.EdgeDocument, 0, len(snap.Edges)),
	}
	for _, n := range snap.Nodes {
		nd, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, e := range snap.Edges {
		ed := domain.EdgeDocument{
			ID:           e.ID(),
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
			Style:        e.Clone().Style,
		}
		if e.Kind != domain.EdgeDefault {
			ed.Type = string(e.Kind)
		}
		doc.Edges = append(doc.Edges, ed)
	}
	return doc, nil
}

// encodeNode flattens label, minimized flag and config fields into one data object.
func encodeNode(n domain.Node) (domain.NodeDocument, error) {
	fields := make(map[string]any)
	if n.Config != nil {
		raw, err := json.Marshal(n.Config)
		if err != nil {
			return domain.NodeDocument{}, fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return domain.NodeDocument{}, fmt.Errorf("encode node %s: %w", n.ID, err)
		}
	}
	fields[domain.FieldLabel] = n.Label
	if n.IsMinimized {
		fields[domain.FieldIsMinimized] = true
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return domain.NodeDocument{}, fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	return domain.NodeDocument{
		ID:       n.ID,
		Type:     string(n.Kind),
		Position: n.Position,
		Data:     data,
	}, nil
}

// Deserialize rebuilds a snapshot from a document. Nodes must decode cleanly;
// edges that reference a missing node or a handle the node does not expose
// are discarded with a warning.
func (c *Codec) Deserialize(doc *domain.FlowDocument) (flow.Snapshot, error) {
	if doc == nil {
		return flow.Snapshot{}, nil
	}

	snap := flow.Snapshot{
		Nodes: make([]domain.Node, 0, len(doc.Nodes)),
		Edges: make([]domain.Edge, 0, len(doc.Edges)),
	}
	byID := make(map[string]domain.Node, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		if _, dup := byID[nd.ID]; dup {
			return flow.Snapshot{}, fmt.Errorf("%w: duplicate node id %q", ErrMalformedDocument, nd.ID)
		}
		n, err := c.decodeNode(nd)
		if err != nil {
			return flow.Snapshot{}, err
		}
		byID[n.ID] = n
		snap.Nodes = append(snap.Nodes, n)
	}

	seen := make(map[string]struct{}, len(doc.Edges))
	for _, ed := range doc.Edges {
		e := domain.Edge{
			Source:       ed.Source,
			SourceHandle: ed.SourceHandle,
			Target:       ed.Target,
			TargetHandle: ed.TargetHandle,
			Kind:         domain.EdgeKind(ed.Type),
			Style:        ed.Style,
		}
		if e.SourceHandle == "" {
			e.SourceHandle = connection.HandleOutput
		}
		if e.TargetHandle == "" {
			e.TargetHandle = connection.HandleInput
		}
		if e.Kind == "" {
			e.Kind = connection.EdgeKindFor(e.TargetHandle)
		}

		if reason := c.edgeProblem(byID, e); reason != "" {
			c.logger.Warn("discarding edge", "edge_id", e.ID(), "reason", reason)
			continue
		}
		if _, dup := seen[e.ID()]; dup {
			continue
		}
		seen[e.ID()] = struct{}{}
		snap.Edges = append(snap.Edges, e.Clone())
	}
	return snap, nil
}

func (c *Codec) edgeProblem(nodes map[string]domain.Node, e domain.Edge) string {
	src, ok := nodes[e.Source]
	if !ok {
		return "unknown source node"
	}
	tgt, ok := nodes[e.Target]
	if !ok {
		return "unknown target node"
	}
	if err := connection.Check(src, tgt, e.SourceHandle, e.TargetHandle); err != nil {
		return err.Error()
	}
	return ""
}

func (c *Codec) decodeNode(nd domain.NodeDocument) (domain.Node, error) {
	kind := domain.NodeKind(nd.Type)
	entry, err := c.reg.Lookup(kind)
	if err != nil {
		return domain.Node{}, fmt.Errorf("node %s: %w", nd.ID, err)
	}

	fields := make(map[string]any)
	if len(nd.Data) > 0 && string(nd.Data) != "null" {
		if err := json.Unmarshal(nd.Data, &fields); err != nil {
			return domain.Node{}, fmt.Errorf("node %s: %w: %v", nd.ID, ErrMalformedDocument, err)
		}
	}

	n := domain.Node{
		ID:       nd.ID,
		Kind:     kind,
		Position: nd.Position,
		Label:    entry.DefaultLabel,
	}
	if v, ok := fields[domain.FieldLabel].(string); ok {
		n.Label = v
	}
	if v, ok := fields[domain.FieldIsMinimized].(bool); ok {
		n.IsMinimized = v
	}
	delete(fields, domain.FieldLabel)
	delete(fields, domain.FieldIsMinimized)

	for key := range fields {
		if _, known := entry.Schema.Lookup(key); !known {
			c.logger.Warn("ignoring unknown node field", "node_id", nd.ID, "field", key)
			delete(fields, key)
		}
	}

	// Decoding would coerce a mistyped value (1.5 into an int field) without a
	// trace, so type failures reject the node. Limit failures are kept and
	// left to save-time validation.
	for _, fe := range schema.FieldErrors(schema.Validate(entry.Schema, fields)) {
		if fe.WrongType() {
			return domain.Node{}, fmt.Errorf("node %s: %w: %v", nd.ID, ErrMalformedDocument, fe)
		}
		c.logger.Warn("stored node breaks a field limit", "node_id", nd.ID, "field", fe.Field, "reason", fe.Reason)
	}

	cfg, err := c.reg.Merge(entry.Default(), fields)
	if err != nil {
		return domain.Node{}, fmt.Errorf("node %s: %w", nd.ID, err)
	}
	c.fillButtonIDs(cfg)
	n.Config = cfg
	return n, nil
}

// fillButtonIDs gives every section and button without an id a fresh one so
// that edges can follow buttons when they move.
func (c *Codec) fillButtonIDs(cfg domain.Config) {
	if msg, ok := cfg.(*domain.MessageConfig); ok {
		msg.FillIDs(c.newID)
	}
}

// Encode renders a document as JSON.
func (c *Codec) Encode(doc *domain.FlowDocument) ([]byte, error) {
	return json.Marshal(doc)
}

// Decode parses JSON into a document after checking its structure.
func (c *Codec) Decode(data []byte) (*domain.FlowDocument, error) {
	if err := CheckStructure(data); err != nil {
		return nil, err
	}
	var doc domain.FlowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// DecodeEnvelope parses an AgentFlow envelope and returns its document.
// A missing or null flowData yields an empty document.
func (c *Codec) DecodeEnvelope(data []byte) (*domain.FlowDocument, error) {
	var env struct {
		FlowData json.RawMessage `json:"flowData"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if len(env.FlowData) == 0 || string(env.FlowData) == "null" {
		return &domain.FlowDocument{Nodes: []domain.NodeDocument{}, Edges: []domain.EdgeDocument{}}, nil
	}
	return c.Decode(env.FlowData)
}
