package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema wraps a JSON schema document that both validates tool input and
// describes it for the model's consumption.
type Schema struct {
	raw      string
	compiled *jsonschema.Schema
}

// NewSchema compiles a JSON schema document.
func NewSchema(doc string) (*Schema, error) {
	compiled, err := jsonschema.CompileString("tool.schema.json", doc)
	if err != nil {
		return nil, fmt.Errorf("compile tool schema: %w", err)
	}
	return &Schema{raw: doc, compiled: compiled}, nil
}

// MustSchema compiles a JSON schema document and panics on error.
// Use for static schemas at registration time.
func MustSchema(doc string) *Schema {
	s, err := NewSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the input against the schema.
func (s *Schema) Validate(input map[string]any) error {
	// A nil map marshals to JSON null, which is not an object; a
	// no-argument invocation must validate like an empty one.
	if input == nil {
		input = map[string]any{}
	}
	// Round-trip through JSON so nested values use the types the
	// validator expects.
	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.compiled.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// JSON returns the raw schema document for inclusion in model requests.
func (s *Schema) JSON() json.RawMessage {
	return json.RawMessage(s.raw)
}
