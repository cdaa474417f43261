// Package schema describes the shape of node configuration payloads.
//
// A Schema is an ordered list of FieldSpec values. Each FieldSpec names a
// field, its Type and the container limits that apply to it (maximum string
// length, maximum item count, numeric range, enumerations). The node type
// registry publishes one Schema per node kind and the validation engine
// consumes it, so neither needs to know the concrete configuration structs.
//
// Basic usage:
//
//	s := schema.Schema{
//	    {Name: "headerText", Type: schema.String(), MaxLen: 60},
//	    {Name: "topK", Type: schema.Int(), Min: schema.Bound(1), Max: schema.Bound(20)},
//	    {Name: "sections", Type: schema.Slice(schema.Object()), MaxItems: 10},
//	}
//
//	// Patch semantics: only the supplied keys are checked, unknown keys are rejected.
//	if err := schema.ValidatePatch(s, map[string]any{"headerText": "Hello"}); err != nil {
//	    // Handle validation errors
//	}
//
// Format constraints (email, url, phone) are declared here but evaluated by the
// validation engine, which owns the format validators.
//
// This package has no dependencies beyond the Go standard library.
package schema
