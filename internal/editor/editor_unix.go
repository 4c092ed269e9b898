//go:build !windows

package editor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// processList runs ps for the full command line of every process.
func processList(ctx context.Context) ([]string, error) {
	output, err := exec.CommandContext(ctx, "ps", "-ewo", "command").Output()
	if err != nil {
		// Not every ps accepts -w.
		output, err = exec.CommandContext(ctx, "ps", "-eo", "command").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute ps command: %w", err)
		}
	}

	var processes []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(strings.ToUpper(line), "COMMAND") {
			processes = append(processes, line)
		}
	}
	return processes, nil
}
