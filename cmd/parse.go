package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/assets"
	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logparser"
	"github.com/newhook/remedy/internal/project"
	"github.com/newhook/remedy/internal/terminal"
)

var (
	flagParseSeverity string
	flagParseHandle   int
)

var parseCmd = &cobra.Command{
	Use:   "parse [message]",
	Short: "Show what the parser extracts from a message",
	Long: `Parse a log message and print its stack frames, referenced files and
compiler warning code. The message is read from stdin when no argument is
given.

Example:
  remedy parse --severity warning "Assets/Foo.cs(10,3): warning CS0219: variable unused"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&flagParseSeverity, "severity", "log", "severity of the message: log, warning or error")
	parseCmd.Flags().IntVar(&flagParseHandle, "handle", 0, "instance handle to resolve when no file is found")
}

func runParse(cmd *cobra.Command, args []string) error {
	proj, err := project.FindOrDefault(flagProject)
	if err != nil {
		return err
	}

	var message string
	if len(args) == 1 {
		message = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		message = strings.TrimRight(string(data), "\n")
	}

	sev := logentry.ParseSeverity(flagParseSeverity)
	handles, err := assets.ParseHandles(proj.Config.Assets.Handles)
	if err != nil {
		return fmt.Errorf("invalid [assets] config: %w", err)
	}
	opts := proj.Config.Parser.Options()
	rec := logentry.New(logentry.Raw{
		Condition:  message,
		Mode:       logentry.ModeFor(sev),
		InstanceID: flagParseHandle,
	},
		logentry.WithParser(logparser.New(opts)),
		logentry.WithResolver(handles),
		logentry.WithTagger(terminal.Tagger{}),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Severity: %s\n", rec.Severity())
	fmt.Fprintf(out, "First line: %s\n", rec.FirstLine())
	if code := rec.Code(); code != "" {
		fmt.Fprintf(out, "Code: %s\n", code)
	}

	if frames := rec.StackFrames(); len(frames) > 0 {
		fmt.Fprintf(out, "Stack frames (%d):\n", len(frames))
		for _, f := range frames {
			loc := ""
			if f.Path != "" {
				loc = "  " + console.FileLine(f.FileRef, opts.ProjectRoot)
			}
			fmt.Fprintf(out, "  %s.%s(%s)%s\n", f.ClassName, f.MethodName, f.MethodParams, loc)
		}
	}

	files := rec.Files()
	if len(files) == 0 {
		fmt.Fprintln(out, "Files: none")
		return nil
	}
	fmt.Fprintf(out, "Files (%d):\n", len(files))
	for _, f := range files {
		fmt.Fprintf(out, "  %s\n", console.FileLine(f, opts.ProjectRoot))
	}
	return nil
}
