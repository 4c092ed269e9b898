package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/db"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logparser"
	"github.com/newhook/remedy/internal/project"
)

var (
	flagHistoryLimit    int
	flagHistorySeverity []string
	flagHistoryOutput   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived console sessions",
	Long:  `List the console sessions recorded in the project's archive, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the records of an archived session",
	Long: `Show every record archived for a session. A unique prefix of the session
ID is enough. Without an ID, an interactive terminal offers a picker.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export an archived session as JSON lines",
	Long: `Write a session header line followed by one JSON object per record.
Output ending in .zst is zstd-compressed.

Example:
  remedy history export 5d1c -o crash.jsonl.zst`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryExport,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum sessions to list (0 for all)")
	historyShowCmd.Flags().StringSliceVar(&flagHistorySeverity, "severity", nil, "only show these severities (log, warning, error, terminal)")
	historyExportCmd.Flags().StringSliceVar(&flagHistorySeverity, "severity", nil, "only export these severities")
	historyExportCmd.Flags().StringVarP(&flagHistoryOutput, "output", "o", "", "output file (default: stdout)")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
}

func severityFlags() []logentry.Severity {
	var severities []logentry.Severity
	for _, s := range flagHistorySeverity {
		severities = append(severities, logentry.ParseSeverity(strings.TrimSpace(s)))
	}
	return severities
}

func openArchive() (*db.DB, error) {
	proj, err := project.Find(flagProject)
	if err != nil {
		return nil, fmt.Errorf("not in a project directory: %w", err)
	}
	return proj.OpenArchive(GetContext())
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer database.Close()

	sessions, err := database.Sessions(GetContext(), flagHistoryLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		ended := "running"
		if s.EndedAt != nil {
			ended = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(out, "%s  %s  %-8s  %4d records  %s\n",
			s.ID[:8], s.StartedAt.Format(time.DateTime), ended, s.Records, s.Source)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer database.Close()

	session, err := resolveSession(database, args)
	if err != nil {
		return err
	}

	records, err := database.SessionRecords(ctx, session.ID, severityFlags()...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s (%s, started %s)\n", session.ID, session.Source, session.StartedAt.Format(time.DateTime))
	for _, r := range records {
		style := console.SeverityStyle(r.Severity)
		line := fmt.Sprintf("%s %5s  %s", console.Icon(r.Severity), "x"+console.FormatCount(r.Count),
			logparser.CleanLog(logparser.FirstLine(r.Condition)))
		fmt.Fprintln(out, style.Render(line))
		if r.File != "" {
			fmt.Fprintf(out, "         %s\n", console.FileLine(logparser.FileRef{Path: r.File, Line: r.Line}, ""))
		}
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer database.Close()

	session, err := resolveSession(database, args)
	if err != nil {
		return err
	}
	records, err := database.SessionRecords(ctx, session.ID, severityFlags()...)
	if err != nil {
		return err
	}

	var dst io.Writer = cmd.OutOrStdout()
	if flagHistoryOutput != "" {
		f, err := os.Create(flagHistoryOutput)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		dst = f
	}

	w, err := db.ExportWriter(dst, flagHistoryOutput)
	if err != nil {
		return err
	}
	if err := db.Export(w, session, records); err != nil {
		w.Close()
		return fmt.Errorf("failed to export session: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}
	if flagHistoryOutput != "" {
		fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", len(records), flagHistoryOutput)
	}
	return nil
}

// resolveSession finds the session named by args, or asks for one.
func resolveSession(database *db.DB, args []string) (*db.Session, error) {
	if len(args) == 1 {
		return findSession(database, args[0])
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("session ID required when not running interactively")
	}

	sessions, err := database.Sessions(GetContext(), flagHistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions recorded")
	}

	items := make([]string, len(sessions))
	for i, s := range sessions {
		items[i] = fmt.Sprintf("%s  %s  %4d records  %s", s.ID[:8], s.StartedAt.Format(time.DateTime), s.Records, s.Source)
	}
	prompt := promptui.Select{
		Label: "Select session:",
		Items: items,
		Size:  min(len(items), 10),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "✓ {{ . | green }}",
		},
	}
	i, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil, fmt.Errorf("selection cancelled")
		}
		return nil, err
	}
	return &sessions[i], nil
}

// findSession resolves an exact ID or a unique prefix.
func findSession(database *db.DB, id string) (*db.Session, error) {
	ctx := GetContext()
	if s, err := database.GetSession(ctx, id); err == nil {
		return s, nil
	}

	sessions, err := database.Sessions(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *db.Session
	for i := range sessions {
		if strings.HasPrefix(sessions[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("session prefix %q is ambiguous", id)
			}
			match = &sessions[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", db.ErrSessionNotFound, id)
	}
	return match, nil
}
