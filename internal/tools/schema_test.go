package tools

import (
	"errors"
	"testing"
)

const pathSchema = `{
	"type": "object",
	"required": ["path"],
	"properties": {
		"path": {"type": "string", "description": "The file path"},
		"limit": {"type": "integer"}
	}
}`

func TestSchemaValidate(t *testing.T) {
	s := MustSchema(pathSchema)

	tests := []struct {
		name    string
		input   map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"path": "/tmp/x"}, false},
		{"valid with limit", map[string]any{"path": "/tmp/x", "limit": 10}, false},
		{"missing required", map[string]any{"limit": 10}, true},
		{"wrong type", map[string]any{"path": 42}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.input)
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSchemaValidateNilInput(t *testing.T) {
	// A tool that takes no arguments may be invoked with no input map at
	// all; that must validate like an empty object.
	s := MustSchema(`{"type": "object"}`)
	if err := s.Validate(nil); err != nil {
		t.Errorf("nil input against a free object schema: %v", err)
	}

	// Required properties still fail.
	if err := MustSchema(pathSchema).Validate(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil input must still miss required properties, got %v", err)
	}
}

func TestNewSchemaBadDocument(t *testing.T) {
	if _, err := NewSchema(`{"type": 42}`); err == nil {
		t.Error("expected error for malformed schema")
	}
}

func TestSchemaJSON(t *testing.T) {
	s := MustSchema(pathSchema)
	if string(s.JSON()) != pathSchema {
		t.Error("JSON() should return the raw schema document")
	}
}
