package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/logging"
	rsignal "github.com/newhook/remedy/internal/signal"
)

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// flagProject overrides project discovery
	flagProject string

	// flagNoMouse disables mouse support in the TUI
	flagNoMouse bool
)

var rootCmd = &cobra.Command{
	Use:   "remedy",
	Short: "Remedy - a console for Unity editor logs",
	Long: `Remedy tails the Unity editor log, groups repeated messages, parses stack
traces and compiler warnings, and lets you filter what you see.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Create a cancellable context with signal handling
		rootCtx, rootCancel = rsignal.WithSignalCancel(context.Background())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
		_ = logging.Close()
	},
	// Default to the TUI when no subcommand is provided
	RunE: runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project directory (default: auto-detect from cwd)")
	rootCmd.Flags().BoolVar(&flagNoMouse, "no-mouse", false, "disable mouse support in the TUI")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(terminalCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(migrateCmd)
}
