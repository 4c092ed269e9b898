// Package editor detects whether the editor that writes the log is running.
package editor

import (
	"context"
	"fmt"
	"strings"
)

// Lister lists the command lines of running processes.
type Lister interface {
	ProcessList(ctx context.Context) ([]string, error)
}

// SystemLister lists processes with the platform's process tools.
type SystemLister struct{}

// ProcessList implements Lister.
func (SystemLister) ProcessList(ctx context.Context) ([]string, error) {
	return processList(ctx)
}

// IsRunning reports whether a process whose command line contains pattern
// is running.
func IsRunning(ctx context.Context, pattern string) (bool, error) {
	return IsRunningWith(ctx, pattern, SystemLister{})
}

// IsRunningWith is IsRunning with an explicit Lister.
func IsRunningWith(ctx context.Context, pattern string, lister Lister) (bool, error) {
	if pattern == "" {
		return false, fmt.Errorf("empty editor process pattern")
	}
	processes, err := lister.ProcessList(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get process list: %w", err)
	}
	for _, proc := range processes {
		if matches(proc, pattern) {
			return true, nil
		}
	}
	return false, nil
}

// matches checks the executable part of a command line, so a shell that
// merely mentions the pattern as an argument (like "remedy --project Unity")
// does not count.
func matches(cmdline, pattern string) bool {
	exe := cmdline
	if i := strings.Index(cmdline, " -"); i >= 0 {
		exe = cmdline[:i]
	}
	return strings.Contains(exe, pattern)
}

// Status is a one-line description for the console status bar. It is empty
// when the editor is running or detection failed.
func Status(ctx context.Context, pattern string, lister Lister) string {
	running, err := IsRunningWith(ctx, pattern, lister)
	if err != nil || running {
		return ""
	}
	return fmt.Sprintf("%s is not running; showing the last log", pattern)
}
