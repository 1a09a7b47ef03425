package executors

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"lotreel/internal/services"
)

// commandRunner abstracts external tool invocation so tests can stub it.
type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	detail := summarizeOutput(output)
	if detail != "" {
		return fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// classifyCommandError maps a command failure onto the error taxonomy: a
// context deadline becomes a timeout, everything else an external tool
// failure.
func classifyCommandError(stage, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stage, operation, "timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, stage, operation, "", err)
}

func summarizeOutput(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	joined := strings.Join(lines, " | ")
	const limit = 300
	if len(joined) > limit {
		joined = joined[:limit] + "..."
	}
	return joined
}

func binaryHealth(command string) (string, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "command not configured", false
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Sprintf("binary %q not found", command), false
	}
	return "", true
}
