package aiqueue

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yologdev/yocore/internal/config"
)

// subprocessRunner spawns the configured AI CLI with prompt on stdin and
// returns its trimmed stdout, enforcing timeout. Exists as a field on Queue
// (rather than a free function call) so tests can substitute a fake.
type subprocessRunner func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error)

// runSubprocess is the real CLI invocation: exec.CommandContext with a
// stdin writer and buffered stdout/stderr capture.
func runSubprocess(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := cli.Command
	if command == "" {
		command = "claude"
	}

	cmd := exec.CommandContext(ctx, command, cli.Args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ai provider timeout after %s", timeout)
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("ai provider error: %s", strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("ai provider invocation failed: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
