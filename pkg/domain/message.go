package domain

import "fmt"

// ActionType defines what a button does when pressed.
type ActionType string

const (
	ActionConnectToNode ActionType = "connect_to_node"
	ActionCallNumber    ActionType = "call_number"
	ActionSendEmail     ActionType = "send_email"
	ActionOpenURL       ActionType = "open_url"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionConnectToNode, ActionCallNumber, ActionSendEmail, ActionOpenURL:
		return true
	}
	return false
}

// ButtonConfig is a single interactive button.
type ButtonConfig struct {
	ID          string     `json:"id" mapstructure:"id"`
	Label       string     `json:"label" mapstructure:"label"`
	ActionType  ActionType `json:"actionType" mapstructure:"actionType"`
	ActionValue string     `json:"actionValue,omitempty" mapstructure:"actionValue"`
}

// ButtonSection groups buttons under a heading.
type ButtonSection struct {
	ID          string         `json:"id" mapstructure:"id"`
	SectionName string         `json:"sectionName" mapstructure:"sectionName"`
	Buttons     []ButtonConfig `json:"buttons" mapstructure:"buttons"`
}

// MessageConfig configures an interactive message node.
type MessageConfig struct {
	// Message is the rich-text (HTML) body.
	Message         string          `json:"message" mapstructure:"message"`
	HeaderText      string          `json:"headerText,omitempty" mapstructure:"headerText"`
	ButtonListTitle string          `json:"buttonListTitle,omitempty" mapstructure:"buttonListTitle"`
	Footer          string          `json:"footer,omitempty" mapstructure:"footer"`
	Sections        []ButtonSection `json:"sections,omitempty" mapstructure:"sections"`
}

func (*MessageConfig) Kind() NodeKind { return KindMessage }

func (c *MessageConfig) Clone() Config {
	cp := *c
	if c.Sections != nil {
		cp.Sections = make([]ButtonSection, len(c.Sections))
		for i, s := range c.Sections {
			cp.Sections[i] = s
			if s.Buttons != nil {
				cp.Sections[i].Buttons = append([]ButtonConfig(nil), s.Buttons...)
			}
		}
	}
	return &cp
}

func (*MessageConfig) sealed() {}

// FillIDs gives every section and button that has no id a fresh one from newID.
func (c *MessageConfig) FillIDs(newID func() string) {
	for si := range c.Sections {
		sec := &c.Sections[si]
		if sec.ID == "" {
			sec.ID = newID()
		}
		for bi := range sec.Buttons {
			if sec.Buttons[bi].ID == "" {
				sec.Buttons[bi].ID = newID()
			}
		}
	}
}

// ButtonSections implements ButtonContainer.
func (c *MessageConfig) ButtonSections() []ButtonSection { return c.Sections }

// Button returns the button at the given position.
func (c *MessageConfig) Button(section, button int) (ButtonConfig, error) {
	if section < 0 || section >= len(c.Sections) {
		return ButtonConfig{}, fmt.Errorf("%w: section %d", ErrNotFound, section)
	}
	btns := c.Sections[section].Buttons
	if button < 0 || button >= len(btns) {
		return ButtonConfig{}, fmt.Errorf("%w: section %d button %d", ErrNotFound, section, button)
	}
	return btns[button], nil
}
