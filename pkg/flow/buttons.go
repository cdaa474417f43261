package flow

import (
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
)

// ButtonPatch lists the button fields to change. Nil fields are kept.
type ButtonPatch struct {
	Label       *string
	ActionType  *domain.ActionType
	ActionValue *string
}

// editSections clones the message config of nodeID, lets edit modify it and
// commits the result through the same path as UpdateConfig.
func (s *Store) editSections(op, nodeID string, edit func(cfg *domain.MessageConfig) error) error {
	return s.apply(op, func() ([]domain.Change, error) {
		n, err := s.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		msg, ok := n.Config.(*domain.MessageConfig)
		if !ok {
			return nil, fmt.Errorf("%w: %s node %s has no button sections", domain.ErrInvalidConfig, n.Kind, nodeID)
		}
		cfg := msg.Clone().(*domain.MessageConfig)
		if err := edit(cfg); err != nil {
			return nil, err
		}
		change, err := s.commitConfig(n, cfg)
		if err != nil {
			return nil, err
		}
		return []domain.Change{change}, nil
	})
}

func sectionAt(cfg *domain.MessageConfig, idx int) (*domain.ButtonSection, error) {
	if idx < 0 || idx >= len(cfg.Sections) {
		return nil, fmt.Errorf("%w: section %d", domain.ErrNotFound, idx)
	}
	return &cfg.Sections[idx], nil
}

// AddSection appends an empty section and returns its id.
func (s *Store) AddSection(nodeID, name string) (string, error) {
	var id string
	err := s.editSections(OpAddSection, nodeID, func(cfg *domain.MessageConfig) error {
		id = s.newID()
		cfg.Sections = append(cfg.Sections, domain.ButtonSection{
			ID:          id,
			SectionName: name,
			Buttons:     []domain.ButtonConfig{},
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemoveSection deletes a section with its buttons. Edges leaving its
// buttons are removed and edges of later sections are re-keyed.
func (s *Store) RemoveSection(nodeID string, section int) error {
	return s.editSections(OpRemoveSection, nodeID, func(cfg *domain.MessageConfig) error {
		if _, err := sectionAt(cfg, section); err != nil {
			return err
		}
		cfg.Sections = append(cfg.Sections[:section], cfg.Sections[section+1:]...)
		return nil
	})
}

// RenameSection sets the name of a section.
func (s *Store) RenameSection(nodeID string, section int, name string) error {
	return s.editSections("renameSection", nodeID, func(cfg *domain.MessageConfig) error {
		sec, err := sectionAt(cfg, section)
		if err != nil {
			return err
		}
		sec.SectionName = name
		return nil
	})
}

// AddButton appends a button to a section and returns its id.
func (s *Store) AddButton(nodeID string, section int, label string, action domain.ActionType, value string) (string, error) {
	var id string
	err := s.editSections(OpAddButton, nodeID, func(cfg *domain.MessageConfig) error {
		sec, err := sectionAt(cfg, section)
		if err != nil {
			return err
		}
		if !action.Valid() {
			return fmt.Errorf("%w: action type %q", domain.ErrInvalidConfig, action)
		}
		id = s.newID()
		sec.Buttons = append(sec.Buttons, domain.ButtonConfig{
			ID:          id,
			Label:       label,
			ActionType:  action,
			ActionValue: value,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateButton applies patch to one button. Turning a connect_to_node button
// into another action removes the edges leaving it.
func (s *Store) UpdateButton(nodeID string, section, button int, patch ButtonPatch) error {
	return s.editSections(OpUpdateButton, nodeID, func(cfg *domain.MessageConfig) error {
		if _, err := cfg.Button(section, button); err != nil {
			return err
		}
		b := &cfg.Sections[section].Buttons[button]
		if patch.ActionType != nil {
			if !patch.ActionType.Valid() {
				return fmt.Errorf("%w: action type %q", domain.ErrInvalidConfig, *patch.ActionType)
			}
			b.ActionType = *patch.ActionType
		}
		if patch.Label != nil {
			b.Label = *patch.Label
		}
		if patch.ActionValue != nil {
			b.ActionValue = *patch.ActionValue
		}
		return nil
	})
}

// RemoveButton deletes one button.
func (s *Store) RemoveButton(nodeID string, section, button int) error {
	return s.editSections(OpRemoveButton, nodeID, func(cfg *domain.MessageConfig) error {
		if _, err := cfg.Button(section, button); err != nil {
			return err
		}
		btns := cfg.Sections[section].Buttons
		cfg.Sections[section].Buttons = append(btns[:button], btns[button+1:]...)
		return nil
	})
}

// MoveButton moves a button within its section from one index to another.
// Edges follow the button to its new handle.
func (s *Store) MoveButton(nodeID string, section, from, to int) error {
	return s.editSections(OpMoveButton, nodeID, func(cfg *domain.MessageConfig) error {
		b, err := cfg.Button(section, from)
		if err != nil {
			return err
		}
		btns := cfg.Sections[section].Buttons
		if to < 0 || to >= len(btns) {
			return fmt.Errorf("%w: section %d button %d", domain.ErrNotFound, section, to)
		}
		btns = append(btns[:from], btns[from+1:]...)
		btns = append(btns[:to], append([]domain.ButtonConfig{b}, btns[to:]...)...)
		cfg.Sections[section].Buttons = btns
		return nil
	})
}
