package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quill/internal/config"
	"quill/internal/logging"
)

// Version is stamped at build time.
var Version = "0.1.0-dev"

var (
	// Global flags
	verbose           bool
	workspace         string
	bypassPermissions bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "quill - terminal coding assistant",
	Long: `quill is a terminal coding assistant.

User input is classified by the command router (shell escapes, slash
commands, model input), tool use streams through a permission gate and an
execution protocol, and the transcript is kept canonical by the message
reconciler.

Run without arguments to start the interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Sugar().Warnw("file logging disabled", "err", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd.Context())
	},
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quill %s\n", Version)
	},
}

// toolsCmd lists the registered tools
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Path(workspace))
		if err != nil {
			return err
		}
		registry, _, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		for _, tool := range registry.All() {
			ro := " "
			if tool.IsReadOnly() {
				ro = "r"
			}
			fmt.Printf("%s %-14s %s\n", ro, tool.Name(), tool.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().BoolVar(&bypassPermissions, "bypass-permissions", false, "skip all permission prompts")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
