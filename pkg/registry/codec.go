package registry

import (
	"fmt"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Fields flattens a config into a map keyed by wire field name.
// Nested sections stay typed; only the top level is flattened.
func Fields(cfg domain.Config) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(cfg, &out); err != nil {
		return nil, fmt.Errorf("flatten %s config: %w", cfg.Kind(), err)
	}
	return out, nil
}

// Decode builds a config of kind from a field map.
// Unknown keys are rejected so that typos never silently vanish.
func (r *Registry) Decode(kind domain.NodeKind, fields map[string]any) (domain.Config, error) {
	e, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}

	cfg := e.New()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Merge applies patch on top of cfg as a shallow merge: supplied top-level
// fields replace the existing ones, every other field is preserved.
// cfg itself is never modified.
func (r *Registry) Merge(cfg domain.Config, patch map[string]any) (domain.Config, error) {
	fields, err := Fields(cfg)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := r.Decode(cfg.Kind(), fields)
	if err != nil {
		return nil, err
	}
	// Decoding may alias slices taken from cfg; detach them.
	return merged.Clone(), nil
}
