package tools

import (
	"context"
	"errors"
	"testing"
)

// fakeTool is a minimal configurable Tool for registry and runner tests.
type fakeTool struct {
	name       string
	category   Category
	readOnly   bool
	enabled    bool
	needsPerm  bool
	schema     *Schema
	validate   func(input map[string]any, use *UseContext) ValidationResult
	call       func(ctx context.Context, input map[string]any, use *UseContext) <-chan Event
	scopeInput func(input map[string]any) string
}

func (f *fakeTool) Name() string                             { return f.name }
func (f *fakeTool) UserFacingName(input map[string]any) string { return f.name }
func (f *fakeTool) Description() string                      { return "fake tool for tests" }
func (f *fakeTool) Category() Category                       { return f.category }
func (f *fakeTool) IsReadOnly() bool                         { return f.readOnly }
func (f *fakeTool) IsEnabled() bool                          { return f.enabled }
func (f *fakeTool) NeedsPermission(input map[string]any) bool { return f.needsPerm }

func (f *fakeTool) InputSchema() *Schema {
	if f.schema != nil {
		return f.schema
	}
	return MustSchema(`{"type":"object"}`)
}

func (f *fakeTool) ValidateInput(input map[string]any, use *UseContext) ValidationResult {
	if f.validate != nil {
		return f.validate(input, use)
	}
	return Valid()
}

func (f *fakeTool) Call(ctx context.Context, input map[string]any, use *UseContext) <-chan Event {
	if f.call != nil {
		return f.call(ctx, input, use)
	}
	ch := make(chan Event, 1)
	ch <- ResultEvent("ok", "ok")
	close(ch)
	return ch
}

func (f *fakeTool) RenderResultForAssistant(data any) string {
	if s, ok := data.(string); ok {
		return s
	}
	return ""
}

func newFakeTool(name string, category Category) *fakeTool {
	return &fakeTool{name: name, category: category, enabled: true}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(newFakeTool("test_tool", CategoryGeneral)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := reg.Get("test_tool")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name() != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name(), "test_tool")
	}
}

func TestGetNotFound(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("nonexistent")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(newFakeTool("dupe", CategoryGeneral)); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := reg.Register(newFakeTool("dupe", CategoryGeneral))
	if !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Fatalf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegisterEmptyName(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(newFakeTool("", CategoryGeneral))
	if !errors.Is(err, ErrToolNameEmpty) {
		t.Errorf("expected ErrToolNameEmpty, got %v", err)
	}
}

func TestDisabledTool(t *testing.T) {
	reg := NewRegistry()

	tool := newFakeTool("flaky", CategoryGeneral)
	tool.enabled = false
	reg.MustRegister(tool)

	_, err := reg.Get("flaky")
	if !errors.Is(err, ErrToolDisabled) {
		t.Errorf("expected ErrToolDisabled for self-disabled tool, got %v", err)
	}
}

func TestSetEnabledOverride(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(newFakeTool("toggle", CategoryGeneral))

	reg.SetEnabled("toggle", false)
	if _, err := reg.Get("toggle"); !errors.Is(err, ErrToolDisabled) {
		t.Errorf("expected ErrToolDisabled after SetEnabled(false), got %v", err)
	}

	reg.SetEnabled("toggle", true)
	if _, err := reg.Get("toggle"); err != nil {
		t.Errorf("expected tool enabled again, got %v", err)
	}
}

func TestGetByCategory(t *testing.T) {
	reg := NewRegistry()

	reg.MustRegister(newFakeTool("grep", CategorySearch))
	reg.MustRegister(newFakeTool("glob", CategorySearch))
	reg.MustRegister(newFakeTool("write_file", CategoryFile))

	search := reg.GetByCategory(CategorySearch)
	if len(search) != 2 {
		t.Fatalf("expected 2 search tools, got %d", len(search))
	}
	// Sorted by name.
	if search[0].Name() != "glob" || search[1].Name() != "grep" {
		t.Errorf("category listing not sorted: %s, %s", search[0].Name(), search[1].Name())
	}
}

func TestNames(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(newFakeTool("b", CategoryGeneral))
	reg.MustRegister(newFakeTool("a", CategoryGeneral))

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}
