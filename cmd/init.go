package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/project"
)

var flagInitLog string

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a .remedy/ configuration",
	Long: `Create .remedy/config.toml in dir (default: the current directory) with
every setting documented. Without --log the platform's editor log is tailed.

Example:
  remedy init ~/Projects/SpaceGame --log Logs/Editor.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&flagInitLog, "log", "", "editor log to tail, relative to the project (default: platform editor log)")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	proj, err := project.Create(dir, flagInitLog)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project '%s' created.\n", proj.Config.Project.Name)
	fmt.Fprintf(out, "  Config: %s\n", proj.ConfigPath())
	fmt.Fprintf(out, "  Log:    %s\n", proj.LogPath())
	return nil
}
