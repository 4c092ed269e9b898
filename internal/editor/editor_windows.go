//go:build windows

package editor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// processList asks PowerShell for each process's executable path.
func processList(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
		"Get-Process | ForEach-Object { if ($_.Path) { $_.Path } else { $_.ProcessName } }")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute process list command: %w", err)
	}

	var processes []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			processes = append(processes, line)
		}
	}
	return processes, nil
}
