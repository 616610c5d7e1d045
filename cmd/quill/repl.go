package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"quill/internal/command"
	"quill/internal/config"
	"quill/internal/message"
	"quill/internal/permission"
	"quill/internal/session"
	"quill/internal/tools"
	"quill/internal/tools/file"
	"quill/internal/tools/search"
	"quill/internal/tools/shell"
)

// buildRegistry assembles the tool registry and shell state from config.
func buildRegistry(cfg *config.Config) (*tools.Registry, *shell.State, error) {
	registry := tools.NewRegistry()
	shellState := shell.NewState(cfg.Shell.WorkingDirectory)

	if err := file.RegisterAll(registry); err != nil {
		return nil, nil, err
	}
	if err := search.RegisterAll(registry); err != nil {
		return nil, nil, err
	}
	if err := shell.RegisterAll(registry, shellState); err != nil {
		return nil, nil, err
	}

	for _, name := range cfg.Tools.Disabled {
		registry.SetEnabled(name, false)
	}
	return registry, shellState, nil
}

// runREPL drives an interactive session from stdin.
func runREPL(ctx context.Context) error {
	cfg, err := config.Load(config.Path(workspace))
	if err != nil {
		return err
	}
	if bypassPermissions {
		cfg.Permissions.Mode = "bypass"
	}

	registry, shellState, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	gate := permission.NewGate(permission.PrompterFunc(promptStdin))
	for _, scope := range cfg.Permissions.AllowScopes {
		gate.Grant(scope)
	}

	router := command.NewRouter(command.Builtins(registry, Version), shellState)
	presenter := &terminalPresenter{out: os.Stdout}

	sess := session.New(router, registry, gate, &noProvider{}, presenter, session.Options{
		Model:             cfg.Model.Name,
		AvailableTools:    cfg.Tools.Available,
		BypassPermissions: cfg.BypassPermissions(),
	})

	fmt.Printf("quill %s - type /help for commands, Ctrl-D to exit\n", Version)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		// One turn, one cancellation signal: Ctrl-C interrupts the turn,
		// not the process.
		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		err := sess.HandleInput(turnCtx, line)
		stop()
		if err != nil {
			logger.Sugar().Debugw("turn ended with error", "err", err)
		}
	}
}

// promptStdin asks the user to approve a tool use on the terminal.
func promptStdin(ctx context.Context, req permission.Request) (permission.Decision, error) {
	fmt.Printf("\n%s wants to run %s\n", req.DisplayName, req.ToolName)
	if len(req.Input) > 0 {
		for k, v := range req.Input {
			fmt.Printf("  %s: %v\n", k, v)
		}
	}
	fmt.Print("Allow? [y]es once / [a]lways / [n]o: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return permission.DecisionDeny, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return permission.DecisionAllowOnce, nil
	case "a", "always":
		return permission.DecisionAllowAlways, nil
	default:
		return permission.DecisionDeny, nil
	}
}

// terminalPresenter renders the transcript tail and progress lines. The full
// rendering layer is out of scope; this keeps the REPL usable.
type terminalPresenter struct {
	out   *os.File
	shown int
}

func (p *terminalPresenter) Transcript(msgs []message.Message) {
	for ; p.shown < len(msgs); p.shown++ {
		p.render(msgs[p.shown])
	}
	if p.shown > len(msgs) {
		// Normalization collapsed or reordered earlier messages; do not
		// re-print history, just resync the cursor.
		p.shown = len(msgs)
	}
}

func (p *terminalPresenter) render(m message.Message) {
	switch msg := m.(type) {
	case message.UserMessage:
		for _, b := range msg.Content {
			if tr, ok := b.(message.ToolResultBlock); ok {
				fmt.Fprintf(p.out, "  [%s] %s\n", trim(tr.ToolUseID, 8), trim(message.ResultText(tr), 400))
			}
		}
	case message.AssistantMessage:
		for _, b := range msg.Content {
			switch blk := b.(type) {
			case message.TextBlock:
				fmt.Fprintln(p.out, blk.Text)
			case message.ToolUseBlock:
				fmt.Fprintf(p.out, "  [%s] %s...\n", trim(blk.ID, 8), blk.Name)
			}
		}
	}
}

func (p *terminalPresenter) Progress(m message.ProgressMessage) {
	if tb, ok := m.Content.(message.TextBlock); ok && tb.Text != "" {
		fmt.Fprintf(p.out, "  [%s] %s\n", trim(m.ToolUseID, 8), trim(tb.Text, 120))
	}
}

func (p *terminalPresenter) Interact(ctx context.Context, cmd *command.Command, args string) (string, error) {
	switch cmd.Name {
	case "model":
		if args == "" {
			return "", fmt.Errorf("usage: /model <name>")
		}
		return "Model preference noted: " + args, nil
	default:
		return "", fmt.Errorf("no interactive handler for /%s", cmd.Name)
	}
}

// noProvider is the placeholder model port; the wire client is an external
// collaborator and plugs in here.
type noProvider struct{}

func (noProvider) Complete(ctx context.Context, msgs []message.Message) (message.AssistantMessage, error) {
	return message.AssistantMessage{}, fmt.Errorf("no model provider configured (set model.provider and api key in %s)", config.Path(workspace))
}

func trim(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
