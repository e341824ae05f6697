package charter

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema wraps a compiled JSON-Schema draft-2020-12 document used to validate
// node/pack state patches and tool/transition input payloads, and to emit
// JSON-Schema for the inference backend's tool definitions.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// NewSchema compiles the given JSON-Schema document (as a decoded map, e.g.
// from json.Unmarshal or a Go literal) and returns a reusable Schema.
func NewSchema(doc map[string]any) (*Schema, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	c := jsonschema.NewCompiler()
	const resourceName = "schema.json"
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("charter: add schema resource: %w", err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("charter: compile schema: %w", err)
	}
	return &Schema{raw: doc, compiled: compiled}, nil
}

// MustSchema is like NewSchema but panics on error. Intended for charter
// construction code where the schema document is a compile-time literal.
func MustSchema(doc map[string]any) *Schema {
	s, err := NewSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks value against the compiled schema. value must already be a
// JSON-compatible Go value (map[string]any, []any, string, float64, bool,
// nil) — callers working with structs should round-trip through
// encoding/json first.
func (s *Schema) Validate(value any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	if err := s.compiled.Validate(value); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// JSONSchema returns the schema's JSON-Schema document, suitable for
// embedding in a tool definition sent to the inference backend or for
// serialization (C9).
func (s *Schema) JSONSchema() map[string]any {
	if s == nil || s.raw == nil {
		return map[string]any{}
	}
	return s.raw
}

// DecodeValidate unmarshals payload into a generic JSON value and validates
// it against the schema in one step. It is the common entry point for tool
// input and state patch validation, where payloads typically arrive as
// json.RawMessage from the inference backend.
func (s *Schema) DecodeValidate(payload json.RawMessage) (map[string]any, error) {
	var value map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &value); err != nil {
			return nil, fmt.Errorf("charter: decode payload: %w", err)
		}
	}
	if err := s.Validate(toJSONValue(value)); err != nil {
		return nil, err
	}
	return value, nil
}

// toJSONValue round-trips v through encoding/json so map[string]any values
// built from Go literals (which may contain int, not float64) validate the
// same way as values decoded from the wire.
func toJSONValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
