// Package command classifies raw user input: shell escapes run locally,
// known slash commands dispatch through the command table, and everything
// else (including unknown slash commands) is ordinary model input.
package command

import (
	"context"
	"fmt"
	"strings"

	"quill/internal/logging"
	"quill/internal/message"
	"quill/internal/tools/shell"
)

// Route says where an input goes after classification.
type Route int

const (
	// RouteModel forwards the input to the model as a user message.
	RouteModel Route = iota
	// RouteShell runs the input through the shell tool, bypassing the model.
	RouteShell
	// RouteHandled means the router produced the response itself (cd, local
	// commands); Messages carries the transcript additions.
	RouteHandled
	// RouteInteractive hands control to the presentation layer.
	RouteInteractive
	// RoutePrompt expands into seed messages for the model.
	RoutePrompt
)

// Dispatch is the result of classifying one line of input.
type Dispatch struct {
	Route        Route
	Input        string            // RouteModel: text to send
	ShellCommand string            // RouteShell: command to execute
	Command      *Command          // RouteInteractive: the matched entry
	Messages     []message.Message // RouteHandled / RoutePrompt
}

// Router owns the command table and the shell working-directory state used
// by the cd special case.
type Router struct {
	table *Table
	shell *shell.State
}

// NewRouter builds a router over the given table and shell state.
func NewRouter(table *Table, shellState *shell.State) *Router {
	if table == nil {
		table = NewTable()
	}
	if shellState == nil {
		shellState = shell.NewState("")
	}
	return &Router{table: table, shell: shellState}
}

// ShellState exposes the shared working-directory state.
func (r *Router) ShellState() *shell.State { return r.shell }

// Route classifies input by fixed precedence: shell escape, slash command,
// model input. Unknown slash commands fall through to model input rather
// than erroring.
func (r *Router) Route(ctx context.Context, input string) Dispatch {
	trimmed := strings.TrimSpace(input)

	if strings.HasPrefix(trimmed, "!") {
		return r.routeShellEscape(strings.TrimSpace(trimmed[1:]))
	}

	if strings.HasPrefix(trimmed, "/") {
		name, args, _ := strings.Cut(trimmed[1:], " ")
		cmd, ok := r.table.Lookup(name)
		if !ok || !cmd.Enabled() {
			logging.CommandsDebug("unknown slash command %q, treating as model input", name)
			return Dispatch{Route: RouteModel, Input: input}
		}
		return r.dispatch(ctx, cmd, strings.TrimSpace(args))
	}

	return Dispatch{Route: RouteModel, Input: input}
}

// routeShellEscape handles `!cmd`. `!cd <dir>` only mutates the shared
// working directory and never reaches the shell tool or the model.
func (r *Router) routeShellEscape(cmdline string) Dispatch {
	if cmdline == "" {
		return handled("!", "usage: !<command>", true)
	}

	if cmdline == "cd" || strings.HasPrefix(cmdline, "cd ") {
		dir := strings.TrimSpace(strings.TrimPrefix(cmdline, "cd"))
		if dir == "" {
			return handled("!cd", r.shell.Workdir(), false)
		}
		if err := r.shell.Chdir(dir); err != nil {
			return handled("!cd "+dir, err.Error(), true)
		}
		logging.Commands("cd: workdir now %s", r.shell.Workdir())
		return handled("!cd "+dir, "Working directory: "+r.shell.Workdir(), false)
	}

	logging.CommandsDebug("shell escape: %s", cmdline)
	return Dispatch{Route: RouteShell, ShellCommand: cmdline}
}

func (r *Router) dispatch(ctx context.Context, cmd *Command, args string) Dispatch {
	logging.Commands("dispatch /%s kind=%s", cmd.Name, cmd.Kind)

	echo := "/" + cmd.Name
	if args != "" {
		echo += " " + args
	}

	switch cmd.Kind {
	case KindInteractive:
		return Dispatch{Route: RouteInteractive, Command: cmd, Input: args}

	case KindPrompt:
		msgs, err := cmd.Expand(ctx, args)
		if err != nil {
			// Malformed arguments: report as assistant text, keep going.
			return handled(echo, err.Error(), true)
		}
		return Dispatch{Route: RoutePrompt, Command: cmd, Messages: msgs}

	default: // KindLocal
		out, err := cmd.Run(ctx, args)
		if err != nil {
			return handled(echo, err.Error(), true)
		}
		return handled(echo, out, false)
	}
}

// handled builds the synchronous user+assistant pair a locally-resolved
// input adds to the transcript.
func handled(input, response string, isError bool) Dispatch {
	if isError {
		response = fmt.Sprintf("Error: %s", response)
	}
	return Dispatch{
		Route: RouteHandled,
		Messages: []message.Message{
			message.NewUserText(input),
			message.NewAssistantText(response, isError),
		},
	}
}
