package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/project"
	"github.com/newhook/remedy/internal/terminal"
)

var terminalCmd = &cobra.Command{
	Use:   "terminal <command...>",
	Short: "Send a terminal command to the console",
	Long: `Append a terminal command to the editor log. The console shows it as a
terminal entry with the command's response; "/help" lists what is known.

Example:
  remedy terminal /help`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTerminal,
}

func runTerminal(cmd *cobra.Command, args []string) error {
	proj, err := project.FindOrDefault(flagProject)
	if err != nil {
		return err
	}

	f, err := openLogForAppend(proj.LogPath())
	if err != nil {
		return err
	}
	defer f.Close()

	// An empty location trailer ends the entry right away.
	block := terminal.Command(strings.Join(args, " ")) + "\n\n(Filename:  Line: 0)\n\n"
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}
