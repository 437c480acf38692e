package service

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/domain/subtask"
)

// SideOpsFactory builds the independent side operations fanned out during
// a round's implementation phase. Injected so tests can substitute cheap
// in-memory tasks for shell commands.
type SideOpsFactory func(missionID string, round int) []subtask.Spec

// CommandSideOps returns the default factory: format, lint, test, and
// diff shell commands. Lint and diff wait for format so they observe the
// formatted tree; test runs independently.
func CommandSideOps(cfg config.Executor) SideOpsFactory {
	return func(string, int) []subtask.Spec {
		var specs []subtask.Spec
		add := func(name, command string, deps ...string) {
			if command == "" {
				return
			}
			specs = append(specs, subtask.Spec{
				Name:      name,
				DependsOn: deps,
				Timeout:   cfg.DefaultTimeout,
				Run: func(ctx context.Context) (string, error) {
					return runShell(ctx, cfg.WorkDir, command)
				},
			})
		}
		// Without a format command there is no format task, so lint and
		// diff must not declare a dependency on it.
		var afterFormat []string
		if cfg.FormatCommand != "" {
			afterFormat = []string{"format"}
		}
		add("format", cfg.FormatCommand)
		add("lint", cfg.LintCommand, afterFormat...)
		add("test", cfg.TestCommand)
		add("diff", cfg.DiffCommand, afterFormat...)
		return specs
	}
}

// runShell runs a command line through the shell in the given directory.
func runShell(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // G204: commands come from operator config, not user input
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
