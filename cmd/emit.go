package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/classlog"
	"github.com/newhook/remedy/internal/project"
)

var (
	flagEmitComponent string
	flagEmitNamespace string
	flagEmitLevel     string
	flagEmitRich      bool
)

var emitCmd = &cobra.Command{
	Use:   "emit <message...>",
	Short: "Write a component-tagged message to the editor log",
	Long: `Write a "[Component] message" entry to the project's editor log in the
editor's own format, so watch and tui pick it up like any scripted log.

The [classlog] config restricts which components and namespaces are written.

Example:
  remedy emit --component Player --level warn "health low"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&flagEmitComponent, "component", "", "component name (default: derived from the caller)")
	emitCmd.Flags().StringVar(&flagEmitNamespace, "namespace", "", "namespace checked against the [classlog] allow-list")
	emitCmd.Flags().StringVar(&flagEmitLevel, "level", "info", "debug, info, warn or error")
	emitCmd.Flags().BoolVar(&flagEmitRich, "rich", false, "wrap the component in rich-text colour tags")
}

func runEmit(cmd *cobra.Command, args []string) error {
	proj, err := project.FindOrDefault(flagProject)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(flagEmitLevel)); err != nil {
		return fmt.Errorf("invalid level %q: %w", flagEmitLevel, err)
	}

	f, err := openLogForAppend(proj.LogPath())
	if err != nil {
		return err
	}
	defer f.Close()

	cfg := proj.Config.ClassLog
	handler := classlog.NewHandler(f, &classlog.Options{
		Components: cfg.Components,
		Namespaces: cfg.Namespaces,
		RichText:   cfg.RichText || flagEmitRich,
		Level:      slog.LevelDebug,
	})

	var attrs []any
	if flagEmitComponent != "" {
		attrs = append(attrs, classlog.ComponentKey, flagEmitComponent)
	}
	if flagEmitNamespace != "" {
		attrs = append(attrs, classlog.NamespaceKey, flagEmitNamespace)
	}
	slog.New(handler).Log(context.Background(), level, strings.Join(args, " "), attrs...)
	return nil
}

// openLogForAppend opens path for appending, creating it and its
// directory if needed.
func openLogForAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
