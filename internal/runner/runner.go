// Package runner drives one tool invocation through the execution protocol:
// Validating -> AwaitingPermission -> Executing -> terminal state. Nothing
// inside tool execution is allowed to propagate as an unhandled fault past
// this boundary; every path ends in exactly one terminal state and one
// tool_result-bearing message.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"quill/internal/logging"
	"quill/internal/message"
	"quill/internal/permission"
	"quill/internal/tools"
)

// State identifies where an invocation is in the protocol.
type State string

const (
	StateValidating         State = "validating"
	StateAwaitingPermission State = "awaiting_permission"
	StateExecuting          State = "executing"
	StateSucceeded          State = "succeeded"
	StateFailed             State = "failed"
	StateRejected           State = "rejected"
	StateCancelled          State = "cancelled"
)

// InterruptedMessage is the fixed text reported for cancelled invocations.
const InterruptedMessage = "Interrupted by user"

// cancelGrace is how long a cancelled tool gets to surface partial output
// before the runner stops waiting for its terminal event.
const cancelGrace = 2 * time.Second

// Outcome is the terminal record of one invocation.
type Outcome struct {
	// State is the terminal protocol state.
	State State

	// ToolUseID identifies the request this outcome answers.
	ToolUseID string

	// Message is the tool_result-bearing user message to append to the
	// transcript.
	Message message.UserMessage
}

// ProgressFunc receives ephemeral progress messages for live presentation.
// May be nil. Called from the invocation's goroutine.
type ProgressFunc func(message.ProgressMessage)

// Runner executes tool-use requests against a registry and a gate.
type Runner struct {
	registry *tools.Registry
	gate     *permission.Gate
}

// New creates a runner.
func New(registry *tools.Registry, gate *permission.Gate) *Runner {
	return &Runner{registry: registry, gate: gate}
}

// Run drives a single tool-use request to a terminal state.
func (r *Runner) Run(ctx context.Context, use message.ToolUseBlock, tuc *tools.UseContext, siblings []string, progress ProgressFunc, snapshot []message.Message) Outcome {
	log := logging.Get(logging.CategoryTools)

	// Validating: resolve the tool.
	tool, err := r.resolve(use.Name, tuc)
	if err != nil {
		log.Warn("tool %s unavailable: %v", use.Name, err)
		return r.failed(use, fmt.Sprintf("Tool %q is not available: %v", use.Name, err))
	}

	// Validating: schema, then the tool's own precondition check. A failing
	// validation short-circuits with no side effects attempted.
	if err := tool.InputSchema().Validate(use.Input); err != nil {
		return r.failed(use, fmt.Sprintf("Invalid input for %s: %v", use.Name, err))
	}
	if v := tool.ValidateInput(use.Input, tuc); !v.OK {
		log.Debug("validation failed for %s: %s", use.Name, v.Reason)
		return r.failed(use, v.Reason)
	}

	// AwaitingPermission: suspend until the gate resolves. Cancellation
	// here means the tool is never called.
	if err := r.gate.Check(ctx, tool, use.Input, tuc); err != nil {
		switch {
		case errors.Is(err, permission.ErrRejected):
			return Outcome{
				State:     StateRejected,
				ToolUseID: use.ID,
				Message:   message.NewToolResultMessage(message.TextResult(use.ID, permission.RejectionMessage, true), nil),
			}
		case ctx.Err() != nil:
			return r.cancelled(use, "")
		default:
			return r.failed(use, fmt.Sprintf("Permission check failed: %v", err))
		}
	}

	// Executing: consume the event stream, observing cancellation at every
	// receive.
	log.Info("executing %s (%s)", use.Name, use.ID)
	events := tool.Call(ctx, use.Input, tuc)

	var terminal *tools.Event
loop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch ev.Kind {
			case tools.EventProgress:
				if progress != nil {
					progress(message.NewProgressMessage(use.ID, siblings, message.TextBlock{Text: ev.Progress}, snapshot))
				}
			default:
				ev := ev
				terminal = &ev
			}
		case <-ctx.Done():
			terminal = drainTerminal(events)
			break loop
		}
	}

	if ctx.Err() != nil {
		partial := ""
		if terminal != nil && terminal.Kind == tools.EventResult {
			partial = terminal.ForAssistant
		}
		return r.cancelled(use, partial)
	}

	if terminal == nil {
		return r.failed(use, fmt.Sprintf("Tool %s ended without producing a result", use.Name))
	}

	if terminal.Kind == tools.EventError {
		log.Warn("tool %s failed: %v", use.Name, terminal.Err)
		return r.failed(use, terminal.Err.Error())
	}

	forAssistant := terminal.ForAssistant
	if forAssistant == "" {
		forAssistant = tool.RenderResultForAssistant(terminal.Data)
	}
	return Outcome{
		State:     StateSucceeded,
		ToolUseID: use.ID,
		Message:   message.NewToolResultMessage(message.TextResult(use.ID, forAssistant, false), terminal.Data),
	}
}

// RunAll launches one protocol instance per tool-use request in an assistant
// turn. Requests are initiated without waiting for each other; outcomes are
// returned in request order but matched to requests purely by id.
func (r *Runner) RunAll(ctx context.Context, uses []message.ToolUseBlock, tuc *tools.UseContext, progress ProgressFunc, snapshot []message.Message) []Outcome {
	siblings := make([]string, len(uses))
	for i, u := range uses {
		siblings[i] = u.ID
	}

	outcomes := make([]Outcome, len(uses))
	g, gctx := errgroup.WithContext(ctx)
	for i, use := range uses {
		i, use := i, use
		g.Go(func() error {
			outcomes[i] = r.Run(gctx, use, tuc, siblings, progress, snapshot)
			return nil
		})
	}
	// Tool faults surface as error results, never as group errors.
	_ = g.Wait()
	return outcomes
}

// resolve looks the tool up and enforces the turn's available-tools option.
func (r *Runner) resolve(name string, tuc *tools.UseContext) (tools.Tool, error) {
	if tuc != nil && len(tuc.Options.AvailableTools) > 0 {
		allowed := false
		for _, n := range tuc.Options.AvailableTools {
			if n == name {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s (not available this turn)", tools.ErrToolDisabled, name)
		}
	}
	return r.registry.Get(name)
}

func (r *Runner) failed(use message.ToolUseBlock, reason string) Outcome {
	return Outcome{
		State:     StateFailed,
		ToolUseID: use.ID,
		Message:   message.NewToolResultMessage(message.TextResult(use.ID, reason, true), nil),
	}
}

func (r *Runner) cancelled(use message.ToolUseBlock, partial string) Outcome {
	text := InterruptedMessage
	if partial != "" {
		text = partial
	}
	return Outcome{
		State:     StateCancelled,
		ToolUseID: use.ID,
		Message:   message.NewToolResultMessage(message.TextResult(use.ID, text, true), nil),
	}
}

// drainTerminal waits briefly for a cancelled tool's terminal event so
// partial output (e.g. an interrupted shell command) is captured rather than
// discarded. If the tool is still running when the grace expires, the
// channel is handed to a background drainer so the sender never blocks;
// whatever arrives late is logged instead of lost.
func drainTerminal(events <-chan tools.Event) *tools.Event {
	timer := time.NewTimer(cancelGrace)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind != tools.EventProgress {
				return &ev
			}
		case <-timer.C:
			go drainLate(events)
			return nil
		}
	}
}

// drainLate consumes the remainder of an abandoned event stream until the
// tool closes it. The transcript already carries the cancellation result by
// the time anything arrives here.
func drainLate(events <-chan tools.Event) {
	for ev := range events {
		switch ev.Kind {
		case tools.EventResult:
			logging.Tools("late result after cancellation (%d bytes) not added to transcript", len(ev.ForAssistant))
		case tools.EventError:
			logging.ToolsDebug("late error after cancellation: %v", ev.Err)
		}
	}
}
