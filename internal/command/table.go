package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"quill/internal/message"
)

// Kind is the shape of a slash command.
type Kind int

const (
	// KindLocal runs synchronously and reports its own text.
	KindLocal Kind = iota
	// KindInteractive hands control to the presentation layer.
	KindInteractive
	// KindPrompt rewrites the input into seed messages for the model.
	KindPrompt
)

func (k Kind) String() string {
	switch k {
	case KindInteractive:
		return "interactive"
	case KindPrompt:
		return "prompt"
	default:
		return "local"
	}
}

// LocalFunc handles a local command and returns its report text.
type LocalFunc func(ctx context.Context, args string) (string, error)

// ExpandFunc rewrites prompt-command arguments into seed messages.
type ExpandFunc func(ctx context.Context, args string) ([]message.Message, error)

// Command is one table entry. The table is fixed at startup; only the
// enabled flag changes at runtime.
type Command struct {
	Name        string
	Description string
	Kind        Kind

	local  LocalFunc
	expand ExpandFunc

	mu      sync.Mutex
	enabled bool
}

// NewLocal builds a local command.
func NewLocal(name, description string, fn LocalFunc) *Command {
	return &Command{Name: name, Description: description, Kind: KindLocal, local: fn, enabled: true}
}

// NewInteractive builds an interactive command; its behavior lives in the
// presentation layer.
func NewInteractive(name, description string) *Command {
	return &Command{Name: name, Description: description, Kind: KindInteractive, enabled: true}
}

// NewPrompt builds a prompt-producing command.
func NewPrompt(name, description string, fn ExpandFunc) *Command {
	return &Command{Name: name, Description: description, Kind: KindPrompt, expand: fn, enabled: true}
}

// Enabled reports whether the command is currently enabled.
func (c *Command) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled toggles the command.
func (c *Command) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Run executes a local command.
func (c *Command) Run(ctx context.Context, args string) (string, error) {
	if c.local == nil {
		return "", fmt.Errorf("/%s has no local handler", c.Name)
	}
	return c.local(ctx, args)
}

// Expand executes a prompt command.
func (c *Command) Expand(ctx context.Context, args string) ([]message.Message, error) {
	if c.expand == nil {
		return nil, fmt.Errorf("/%s has no prompt handler", c.Name)
	}
	return c.expand(ctx, args)
}

// Table is the startup-built name→command map.
type Table struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{commands: make(map[string]*Command)}
}

// Register adds a command. Duplicate names are an error.
func (t *Table) Register(cmd *Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.commands[cmd.Name]; exists {
		return fmt.Errorf("command already registered: %s", cmd.Name)
	}
	t.commands[cmd.Name] = cmd
	return nil
}

// MustRegister panics on registration failure; for startup wiring.
func (t *Table) MustRegister(cmd *Command) {
	if err := t.Register(cmd); err != nil {
		panic(err)
	}
}

// Lookup finds a command by name.
func (t *Table) Lookup(name string) (*Command, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cmd, ok := t.commands[name]
	return cmd, ok
}

// All returns every command sorted by name, enabled or not.
func (t *Table) All() []*Command {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Command, 0, len(t.commands))
	for _, cmd := range t.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Describe renders the help listing for enabled commands.
func (t *Table) Describe() string {
	var sb strings.Builder
	for _, cmd := range t.All() {
		if !cmd.Enabled() {
			continue
		}
		fmt.Fprintf(&sb, "/%-12s %s\n", cmd.Name, cmd.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}
