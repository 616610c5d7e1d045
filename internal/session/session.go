// Package session drives a conversation: raw input is classified by the
// command router, model turns stream through the tool runner, and every
// addition passes through transcript normalization before it is shown or
// sent back to the model.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quill/internal/command"
	"quill/internal/logging"
	"quill/internal/message"
	"quill/internal/permission"
	"quill/internal/runner"
	"quill/internal/tools"
	"quill/internal/transcript"
)

// maxToolTurns bounds how many consecutive tool-using model turns one input
// may trigger before the session reports the loop back to the user.
const maxToolTurns = 25

// Provider is the model client port. The session owns the transcript; the
// provider owns the wire protocol.
type Provider interface {
	// Complete sends the model-facing transcript and returns the next
	// assistant message.
	Complete(ctx context.Context, msgs []message.Message) (message.AssistantMessage, error)
}

// Presenter receives the canonical transcript and the ephemeral progress
// channel. It must tolerate progress messages that never reach the model.
type Presenter interface {
	// Transcript is called with the full normalized transcript after every
	// change.
	Transcript(msgs []message.Message)

	// Progress is called for each in-flight tool-use update.
	Progress(p message.ProgressMessage)

	// Interact handles an interactive command and returns optional
	// free-form response text.
	Interact(ctx context.Context, cmd *command.Command, args string) (string, error)
}

// Options configures a session.
type Options struct {
	// Model is forwarded to the per-turn tool-use context.
	Model string

	// AvailableTools restricts which tools the model may invoke. Empty
	// means all registered tools.
	AvailableTools []string

	// BypassPermissions skips the gate for every tool use.
	BypassPermissions bool
}

// Session is one conversation.
type Session struct {
	router    *command.Router
	registry  *tools.Registry
	gate      *permission.Gate
	runner    *runner.Runner
	provider  Provider
	presenter Presenter
	opts      Options

	transcript []message.Message
}

// New builds a session over its collaborators.
func New(router *command.Router, registry *tools.Registry, gate *permission.Gate, provider Provider, presenter Presenter, opts Options) *Session {
	return &Session{
		router:    router,
		registry:  registry,
		gate:      gate,
		runner:    runner.New(registry, gate),
		provider:  provider,
		presenter: presenter,
		opts:      opts,
	}
}

// Transcript returns the canonical transcript.
func (s *Session) Transcript() []message.Message {
	return s.transcript
}

// UnresolvedToolUseIDs reports tool uses still awaiting a result.
func (s *Session) UnresolvedToolUseIDs() []string {
	return transcript.UnresolvedToolUseIDs(s.transcript)
}

// HandleInput processes one line of user input to completion: local
// handling, a shell escape, or a full model round-trip with tool execution.
func (s *Session) HandleInput(ctx context.Context, input string) error {
	dispatch := s.router.Route(ctx, input)

	switch dispatch.Route {
	case command.RouteHandled:
		s.append(dispatch.Messages...)
		return nil

	case command.RouteShell:
		return s.runShellEscape(ctx, dispatch.ShellCommand)

	case command.RouteInteractive:
		return s.runInteractive(ctx, dispatch)

	case command.RoutePrompt:
		s.append(dispatch.Messages...)
		return s.modelLoop(ctx)

	default: // command.RouteModel
		s.append(message.NewUserText(dispatch.Input))
		return s.modelLoop(ctx)
	}
}

// runShellEscape executes a `!`-prefixed command through the shell tool,
// bypassing the model entirely. The user typed it, so the gate is bypassed
// too.
func (s *Session) runShellEscape(ctx context.Context, cmdline string) error {
	use := message.ToolUseBlock{
		ID:    uuid.NewString(),
		Name:  "run_command",
		Input: map[string]any{"command": cmdline},
	}
	s.append(
		message.NewUserText("!"+cmdline),
		message.NewAssistantMessage(use),
	)

	tuc := s.newUseContext()
	tuc.Options.BypassPermissions = true
	defer tuc.Close()

	outcome := s.runner.Run(ctx, use, tuc, nil, s.progress, s.transcript)
	logging.Session("shell escape %q -> %s", cmdline, outcome.State)
	s.append(outcome.Message)
	return nil
}

func (s *Session) runInteractive(ctx context.Context, dispatch command.Dispatch) error {
	response, err := s.presenter.Interact(ctx, dispatch.Command, dispatch.Input)
	if err != nil {
		s.append(
			message.NewUserText("/"+dispatch.Command.Name),
			message.NewAssistantText(fmt.Sprintf("Error: %v", err), true),
		)
		return nil
	}
	if response != "" {
		s.append(
			message.NewUserText("/"+dispatch.Command.Name),
			message.NewAssistantText(response, false),
		)
	}
	return nil
}

// modelLoop runs model turns until the model stops requesting tools, the
// turn is cancelled, or the turn budget runs out.
func (s *Session) modelLoop(ctx context.Context) error {
	tuc := s.newUseContext()
	defer tuc.Close()

	for turn := 0; turn < maxToolTurns; turn++ {
		reply, err := s.provider.Complete(ctx, transcript.ForModel(s.transcript))
		if err != nil {
			s.append(message.NewAssistantText(fmt.Sprintf("API error: %v", err), true))
			return err
		}
		s.append(reply)

		uses := toolUses(reply)
		if len(uses) == 0 {
			return nil
		}

		logging.SessionDebug("turn %d: %d tool uses", turn, len(uses))
		outcomes := s.runner.RunAll(ctx, uses, tuc, s.progress, s.transcript)

		stop := false
		for _, outcome := range outcomes {
			s.append(outcome.Message)
			if outcome.State == runner.StateCancelled || outcome.State == runner.StateRejected {
				stop = true
			}
		}
		if stop || ctx.Err() != nil {
			// The result messages explain the stop; the model is not
			// called again this input.
			return nil
		}
	}

	s.append(message.NewAssistantText(
		fmt.Sprintf("Stopped after %d consecutive tool turns.", maxToolTurns), true))
	return nil
}

// append adds messages and re-normalizes the canonical transcript.
func (s *Session) append(msgs ...message.Message) {
	s.transcript = transcript.Normalize(append(s.transcript, msgs...))
	if s.presenter != nil {
		s.presenter.Transcript(s.transcript)
	}
}

func (s *Session) progress(p message.ProgressMessage) {
	if s.presenter != nil {
		s.presenter.Progress(p)
	}
}

func (s *Session) newUseContext() *tools.UseContext {
	tuc := tools.NewUseContext(tools.Options{
		Model:             s.opts.Model,
		AvailableTools:    s.opts.AvailableTools,
		BypassPermissions: s.opts.BypassPermissions,
	})
	if watcher, err := tools.NewFreshnessWatcher(tuc.MarkDirty); err == nil {
		tuc.AttachWatcher(watcher)
	} else {
		logging.SessionDebug("freshness watcher unavailable: %v", err)
	}
	return tuc
}

// toolUses extracts the tool-use requests from an assistant message, in
// block order.
func toolUses(m message.AssistantMessage) []message.ToolUseBlock {
	var uses []message.ToolUseBlock
	for _, b := range m.Content {
		if tu, ok := b.(message.ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}
