package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when a process outlives the runner's timeout and is killed.
var ErrTimeout = errors.New("process timed out")

// ExitError is a process that ran to completion with a non-zero exit code.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d, output: %s", e.Command, e.ExitCode, e.Output)
}

// Runner executes external programs with a bounded wait. Output is buffered
// in full before it is returned; nothing is streamed.
type Runner struct {
	timeout   time.Duration
	waitDelay time.Duration
}

func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout, waitDelay: 2 * time.Second}
}

// CombinedOutput returns stdout and stderr interleaved.
func (r *Runner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.run(ctx, true, name, args...)
}

// Output returns stdout only. Stderr is kept for the error on failure.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.run(ctx, false, name, args...)
}

func (r *Runner) run(ctx context.Context, combined bool, name string, args ...string) ([]byte, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	// the child may leave grandchildren holding the pipes open after a kill
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if combined {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctx.Err() != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return stdout.Bytes(), fmt.Errorf("%w: %s killed after %s", ErrTimeout, name, r.timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		output := stderr.String()
		if combined {
			output = stdout.String()
		}
		return stdout.Bytes(), &ExitError{Command: name, ExitCode: exitErr.ExitCode(), Output: output}
	}
	return nil, fmt.Errorf("run %s: %w", name, err)
}
