package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/editor"
	"github.com/newhook/remedy/internal/project"
	"github.com/newhook/remedy/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive console",
	Long: `Open the interactive console on the project's editor log.

Keys:
  j/k, up/down   move the selection
  tab            switch between the list and the details pane
  /              edit the text filter, m cycles substring/file/regex
  c r s f        toggle collapse, reverse order, small list, file details
  1 2 3          show or hide logs, warnings, errors
  i / I          ignore the selected entry's file / warning code
  u              stop ignoring
  x              clear
  q              quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagNoMouse, "no-mouse", false, "disable mouse support")
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	proj, err := project.FindOrDefault(flagProject)
	if err != nil {
		return err
	}

	s, err := openConsole(ctx, proj, true)
	if err != nil {
		return err
	}
	defer s.Close()

	title := "remedy"
	if name := proj.Config.Project.Name; name != "" {
		title = "remedy: " + name
	}

	err = tui.Run(ctx, tui.Config{
		Title:             title,
		Store:             s.store,
		Provider:          s.file,
		Changes:           s.changes(),
		PollInterval:      proj.Config.Console.GetPollInterval(),
		Display:           s.display(),
		SelectLastChanged: proj.Config.Console.ShouldSelectLastChanged(),
		Notice:            editor.Status(ctx, proj.Config.Source.GetEditorProcess(), editor.SystemLister{}),
	}, !flagNoMouse)
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
