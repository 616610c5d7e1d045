package shell

import (
	"quill/internal/tools"
)

// RegisterAll registers the shell tools with the given registry, all bound
// to the same shared state.
func RegisterAll(registry *tools.Registry, state *State) error {
	allTools := []tools.Tool{
		NewRunCommandTool(state),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
