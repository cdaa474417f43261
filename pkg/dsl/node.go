package dsl

import (
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
// The first error is kept and reported by Builder.Build.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
	err     error
}

func (n *NodeBuilder) fail(err error) *NodeBuilder {
	if n.err == nil {
		n.err = err
	}
	return n
}

// Label sets the display name.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// At places the node on the canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Minimized collapses the node on the canvas.
func (n *NodeBuilder) Minimized() *NodeBuilder {
	n.node.IsMinimized = true
	return n
}

// Set merges one configuration field, using its wire name.
func (n *NodeBuilder) Set(field string, value any) *NodeBuilder {
	if n.err != nil {
		return n
	}
	cfg, err := n.builder.reg.Merge(n.node.Config, map[string]any{field: value})
	if err != nil {
		return n.fail(err)
	}
	n.node.Config = cfg
	return n
}

func (n *NodeBuilder) message() (*domain.MessageConfig, bool) {
	if n.err != nil {
		return nil, false
	}
	cfg, ok := n.node.Config.(*domain.MessageConfig)
	if !ok {
		n.fail(fmt.Errorf("%w: %s nodes have no message fields", domain.ErrInvalidConfig, n.node.Kind))
	}
	return cfg, ok
}

// Text sets the rich-text body of a message node.
func (n *NodeBuilder) Text(html string) *NodeBuilder {
	if cfg, ok := n.message(); ok {
		cfg.Message = html
	}
	return n
}

// Header sets the header text of a message node.
func (n *NodeBuilder) Header(text string) *NodeBuilder {
	if cfg, ok := n.message(); ok {
		cfg.HeaderText = text
	}
	return n
}

// Footer sets the footer of a message node.
func (n *NodeBuilder) Footer(text string) *NodeBuilder {
	if cfg, ok := n.message(); ok {
		cfg.Footer = text
	}
	return n
}

// Section starts a new button section; following Button calls add to it.
func (n *NodeBuilder) Section(name string) *NodeBuilder {
	if cfg, ok := n.message(); ok {
		cfg.Sections = append(cfg.Sections, domain.ButtonSection{
			ID:          fmt.Sprintf("%s-s%d", n.node.ID, len(cfg.Sections)),
			SectionName: name,
			Buttons:     []domain.ButtonConfig{},
		})
	}
	return n
}

// Button adds a button to the current section, starting an unnamed one
// if there is none.
func (n *NodeBuilder) Button(label string, action domain.ActionType, value string) *NodeBuilder {
	cfg, ok := n.message()
	if !ok {
		return n
	}
	if len(cfg.Sections) == 0 {
		n.Section("")
	}
	sec := &cfg.Sections[len(cfg.Sections)-1]
	sec.Buttons = append(sec.Buttons, domain.ButtonConfig{
		ID:          fmt.Sprintf("%s-b%d", sec.ID, len(sec.Buttons)),
		Label:       label,
		ActionType:  action,
		ActionValue: value,
	})
	return n
}

// Build returns a copy of the underlying domain.Node.
func (n *NodeBuilder) Build() (domain.Node, error) {
	return n.node.Clone(), n.err
}
