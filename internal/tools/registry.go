package tools

import (
	"fmt"
	"sort"
	"sync"

	"quill/internal/logging"
)

// Registry holds the set of available tools and resolves them by exact name.
// It is built once at process start and threaded through explicitly; there
// is no package-level singleton, so tests can construct isolated registries.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	// byCategory provides fast lookup by category.
	byCategory map[Category][]Tool

	// disabled holds runtime enable/disable overrides by tool name.
	disabled map[string]bool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		byCategory: make(map[Category][]Tool),
		disabled:   make(map[string]bool),
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	if tool.Name() == "" {
		return ErrToolNameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name())
	}

	r.tools[tool.Name()] = tool
	r.byCategory[tool.Category()] = append(r.byCategory[tool.Category()], tool)

	logging.ToolsDebug("Registered tool: %s (category=%s, read_only=%v)", tool.Name(), tool.Category(), tool.IsReadOnly())
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name(), err))
	}
}

// Get resolves a tool by exact name. A missing or disabled tool is a
// configuration error for the caller's turn, reported as a typed error.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if r.disabled[name] || !tool.IsEnabled() {
		return nil, fmt.Errorf("%w: %s", ErrToolDisabled, name)
	}
	return tool, nil
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// SetEnabled overrides a tool's availability at runtime.
func (r *Registry) SetEnabled(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled {
		delete(r.disabled, name)
	} else {
		r.disabled[name] = true
	}
}

// GetByCategory returns all enabled tools in a category, sorted by name.
func (r *Registry) GetByCategory(category Category) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Tool
	for _, tool := range r.byCategory[category] {
		if r.disabled[tool.Name()] || !tool.IsEnabled() {
			continue
		}
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// All returns all enabled tools, sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for name, tool := range r.tools {
		if r.disabled[name] || !tool.IsEnabled() {
			continue
		}
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
