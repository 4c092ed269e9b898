package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/editor"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logstore"
	"github.com/newhook/remedy/internal/project"
)

var (
	flagWatchTail    bool
	flagWatchOnce    bool
	flagWatchNoCount bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream new log entries to stdout",
	Long: `Tail the project's editor log and print each new entry as it arrives.

Repeated messages are printed once; later repeats print a short count line
unless --no-counts is given. Filters from the [filters] config apply.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&flagWatchTail, "tail", false, "skip entries already in the log")
	watchCmd.Flags().BoolVar(&flagWatchOnce, "once", false, "print the current entries and exit")
	watchCmd.Flags().BoolVar(&flagWatchNoCount, "no-counts", false, "do not print repeat counts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	proj, err := project.FindOrDefault(flagProject)
	if err != nil {
		return err
	}
	s, err := openConsole(ctx, proj, !flagWatchOnce)
	if err != nil {
		return err
	}
	defer s.Close()

	if notice := editor.Status(ctx, proj.Config.Source.GetEditorProcess(), editor.SystemLister{}); notice != "" && !flagWatchOnce {
		fmt.Fprintf(os.Stderr, "note: %s\n", notice)
	}

	stream, err := newLogStream(s, cmd.OutOrStdout(), flagWatchTail, flagWatchNoCount)
	if err != nil {
		return err
	}
	if err := stream.poll(); err != nil {
		return err
	}
	if flagWatchOnce {
		return nil
	}

	ticker := time.NewTicker(proj.Config.Console.GetPollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changes():
		case <-ticker.C:
		}
		if err := stream.poll(); err != nil {
			return err
		}
	}
}

// logStream prints a session's store notifications as polls deliver them.
type logStream struct {
	store   *logstore.Store
	printer *streamPrinter
}

// newLogStream attaches a printer to the session's store. With tail set,
// entries already in the log are read first and not printed.
func newLogStream(s *consoleSession, out io.Writer, tail, noCounts bool) (*logStream, error) {
	printer := &streamPrinter{
		out:      out,
		store:    s.store,
		display:  s.display(),
		noCounts: noCounts,
	}
	if tail {
		if err := s.store.Poll(logstore.ModeNone); err != nil {
			return nil, err
		}
	}
	printer.attach()
	return &logStream{store: s.store, printer: printer}, nil
}

// poll reconciles once. Only a failure to begin the batch is fatal; row
// errors are reported and retried on the next tick.
//
// Add mode, so collapsed repeats, which add no rows, still refresh counts.
// A shrunken log still forces a rebuild.
func (w *logStream) poll() error {
	err := w.store.Poll(logstore.ModeAdd)
	if errors.Is(err, logstore.ErrBatch) {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return nil
}

// streamPrinter writes store notifications as they are flushed.
type streamPrinter struct {
	out      io.Writer
	store    *logstore.Store
	display  console.Options
	noCounts bool
}

func (p *streamPrinter) attach() {
	p.store.OnRecordAdded(func(rec *logentry.Record) {
		if !p.store.Filters().Visible(rec) {
			return
		}
		fmt.Fprintln(p.out, console.Stream(rec, p.display))
	})
	p.store.OnOccurrenceChanged(func(rec *logentry.Record) {
		if p.noCounts || !p.store.Filters().Visible(rec) {
			return
		}
		fmt.Fprintf(p.out, "%s (x%d)\n", console.Stream(rec, console.Options{SmallList: true}), rec.Count())
	})
}
