package helper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

const defaultShell = "/bin/sh"

// Executor runs command lines through a shell and returns merged
// stdout/stderr as text. It performs no allow-listing; whoever can reach it
// can run anything with its privileges.
type Executor struct {
	shell   string
	timeout time.Duration
}

// NewExecutor creates an executor. A zero timeout means commands may run
// until they exit on their own.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{shell: defaultShell, timeout: timeout}
}

// Execute runs command and always returns text. Launch failures and
// timeouts are reported in the result rather than as errors.
func (e *Executor) Execute(ctx context.Context, command string) model.CommandResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	cmd.Stdout = &out
	cmd.Stderr = &out
	// children of a killed shell may hold the pipe open
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.Error("Failed to launch command", "command", command, "error", err)
		return model.CommandResult{
			Output: fmt.Sprintf("Error: failed to run command: %v", err),
			Kind:   model.FailureCommand,
		}
	}

	err := cmd.Wait()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn("Command did not complete", "command", command, "elapsed", elapsed, "error", ctxErr)
		if errors.Is(ctxErr, context.Canceled) {
			return model.CommandResult{
				Output: "Command cancelled: " + command,
				Kind:   model.FailureTransport,
			}
		}
		return model.CommandResult{
			Output: fmt.Sprintf("Command timed out after %s: %s", elapsed.Round(time.Millisecond), command),
			Kind:   model.FailureTimeout,
		}
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		log.Error("Command wait failed", "command", command, "error", err)
	}
	log.Debug("Command finished", "command", command, "elapsed", elapsed, "exit_error", err)

	return model.CommandResult{Output: normalizeOutput(out.String())}
}

func normalizeOutput(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.NoOutput
	}
	return s
}

// RunCommand lets an Executor stand in wherever a helper connection is
// expected, e.g. for commands that need no privileges.
func (e *Executor) RunCommand(ctx context.Context, command string) model.CommandResult {
	return e.Execute(ctx, command)
}
