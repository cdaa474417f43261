package schema

import (
	"encoding/json"
	"fmt"
)

type fieldJSON struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	MaxLen   int      `json:"maxLen,omitempty"`
	MaxItems int      `json:"maxItems,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	OneOf    []string `json:"oneOf,omitempty"`
	Format   string   `json:"format,omitempty"`
}

// MarshalJSON serializes the field with its type as a type string.
func (f FieldSpec) MarshalJSON() ([]byte, error) {
	if f.Type == nil {
		return nil, fmt.Errorf("field %s: type is nil", f.Name)
	}
	return json.Marshal(fieldJSON{
		Name:     f.Name,
		Type:     f.Type.Name(),
		MaxLen:   f.MaxLen,
		MaxItems: f.MaxItems,
		Min:      f.Min,
		Max:      f.Max,
		OneOf:    f.OneOf,
		Format:   f.Format,
	})
}

// UnmarshalJSON deserializes a field, parsing its type string.
// The type string must be one ParseType understands.
func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	var raw fieldJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, err := ParseType(raw.Type)
	if err != nil {
		return fmt.Errorf("field %s: %w", raw.Name, err)
	}
	*f = FieldSpec{
		Name:     raw.Name,
		Type:     typ,
		MaxLen:   raw.MaxLen,
		MaxItems: raw.MaxItems,
		Min:      raw.Min,
		Max:      raw.Max,
		OneOf:    raw.OneOf,
		Format:   raw.Format,
	}
	return nil
}
