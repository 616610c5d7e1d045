package file

import (
	"quill/internal/tools"
)

// RegisterAll registers all filesystem tools with the given registry.
func RegisterAll(registry *tools.Registry) error {
	allTools := []tools.Tool{
		NewReadTool(),
		NewWriteTool(),
		NewEditTool(),
		NewListTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
