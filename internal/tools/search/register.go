package search

import (
	"quill/internal/tools"
)

// RegisterAll registers all search tools with the given registry.
func RegisterAll(registry *tools.Registry) error {
	allTools := []tools.Tool{
		NewGlobTool(),
		NewGrepTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
