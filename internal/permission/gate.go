// Package permission decides, per tool invocation, whether execution may
// proceed. Decisions come from an external collaborator (the Prompter);
// "always allow" grants are remembered per scope for the process lifetime.
package permission

import (
	"context"
	"errors"
	"sync"

	"quill/internal/logging"
	"quill/internal/tools"
)

// Decision is the collaborator's answer to a permission request.
type Decision int

const (
	// DecisionDeny rejects this invocation.
	DecisionDeny Decision = iota

	// DecisionAllowOnce permits this invocation only.
	DecisionAllowOnce

	// DecisionAllowAlways permits this invocation and records a grant for
	// the request's scope, short-circuiting future checks.
	DecisionAllowAlways
)

// ErrRejected is returned when the user declines permission.
var ErrRejected = errors.New("permission rejected by user")

// RejectionMessage is the fixed instructive text surfaced to the model when
// the user declines, so the model reliably stops acting.
const RejectionMessage = "The user rejected this tool use. Do not retry it or attempt the same action another way. Stop what you are doing and wait for the user to tell you how to proceed."

// Request describes one tool invocation awaiting a decision.
type Request struct {
	// ToolName is the protocol identifier.
	ToolName string

	// DisplayName is the input-dependent user-facing name.
	DisplayName string

	// Input is the resolved structured input.
	Input map[string]any

	// Scope is the grant key an "always allow" decision is recorded under.
	Scope string

	// ReadOnly classifies the risk for presentation.
	ReadOnly bool
}

// Prompter is the external collaborator that owns user interaction. Prompt
// blocks until a decision is returned or ctx is cancelled.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Decision, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, req Request) (Decision, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// Gate gates tool execution behind permission decisions.
type Gate struct {
	mu       sync.RWMutex
	grants   map[string]struct{}
	prompter Prompter
}

// NewGate creates a gate that consults the given prompter.
func NewGate(prompter Prompter) *Gate {
	return &Gate{
		grants:   make(map[string]struct{}),
		prompter: prompter,
	}
}

// Check decides whether the invocation may proceed. It returns nil to allow,
// ErrRejected when the user declines, or ctx's error if cancelled while
// awaiting a decision.
func (g *Gate) Check(ctx context.Context, tool tools.Tool, input map[string]any, use *tools.UseContext) error {
	if use != nil && use.Options.BypassPermissions {
		logging.GateDebug("bypass: %s", tool.Name())
		return nil
	}
	if !tool.NeedsPermission(input) {
		return nil
	}

	scope := ScopeFor(tool, input)
	if g.HasGrant(scope) {
		logging.GateDebug("grant hit: %s (%s)", tool.Name(), scope)
		return nil
	}

	decision, err := g.prompter.Prompt(ctx, Request{
		ToolName:    tool.Name(),
		DisplayName: tool.UserFacingName(input),
		Input:       input,
		Scope:       scope,
		ReadOnly:    tool.IsReadOnly(),
	})
	if err != nil {
		return err
	}

	switch decision {
	case DecisionAllowAlways:
		g.Grant(scope)
		logging.Gate("allow-always: %s (%s)", tool.Name(), scope)
		return nil
	case DecisionAllowOnce:
		logging.Gate("allow-once: %s", tool.Name())
		return nil
	default:
		logging.Gate("deny: %s", tool.Name())
		return ErrRejected
	}
}

// Grant records an "always allow" decision for a scope.
func (g *Gate) Grant(scope string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants[scope] = struct{}{}
}

// HasGrant reports whether a scope has a recorded grant.
func (g *Gate) HasGrant(scope string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.grants[scope]
	return ok
}

// ScopeFor computes the grant key for an invocation. Tools that implement
// tools.PermissionScoper narrow the key (e.g. write access rooted at a
// directory); everything else is scoped by tool name.
func ScopeFor(tool tools.Tool, input map[string]any) string {
	if scoper, ok := tool.(tools.PermissionScoper); ok {
		if scope := scoper.PermissionScope(input); scope != "" {
			return scope
		}
	}
	return "tool:" + tool.Name()
}
