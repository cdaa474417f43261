package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrMalformedDocument is returned when a document does not have the FlowDocument shape.
var ErrMalformedDocument = errors.New("malformed flow document")

const documentSchemaURL = "https://flowboard.dev/schemas/flow-document.json"

const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "position"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "position": {
            "type": "object",
            "required": ["x", "y"],
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"}
            }
          },
          "data": {"type": ["object", "null"]}
        }
      }
    },
    "edges": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "id": {"type": "string"},
          "source": {"type": "string", "minLength": 1},
          "target": {"type": "string", "minLength": 1},
          "sourceHandle": {"type": ["string", "null"]},
          "targetHandle": {"type": ["string", "null"]},
          "type": {"type": "string"},
          "style": {"type": ["object", "null"]}
        }
      }
    }
  }
}`

// StructureError lists every structural violation of a document.
type StructureError struct {
	Violations []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedDocument, strings.Join(e.Violations, "; "))
}

func (e *StructureError) Unwrap() error { return ErrMalformedDocument }

var documentSchema = mustCompileDocumentSchema()

func mustCompileDocumentSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("unmarshal flow document schema: %v", err))
	}
	if err := c.AddResource(documentSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("add flow document schema: %v", err))
	}
	sch, err := c.Compile(documentSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile flow document schema: %v", err))
	}
	return sch
}

// CheckStructure validates raw JSON against the FlowDocument shape.
func CheckStructure(data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &StructureError{Violations: []string{fmt.Sprintf("invalid json: %v", err)}}
	}
	if err := documentSchema.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &StructureError{Violations: collectViolations(verr)}
		}
		return &StructureError{Violations: []string{err.Error()}}
	}
	return nil
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
