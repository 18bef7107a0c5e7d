package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/wesleyorama2/timeit/internal/logger"
)

// DefaultWaitDelay bounds how long Run waits for output pipes to close
// after the child has been killed.
const DefaultWaitDelay = 2 * time.Second

// Result is the outcome of a finished process.
type Result struct {
	PID      int
	ExitCode int
	Stdout   string
	Stderr   string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Runner spawns processes.
type Runner interface {
	// Run starts cmd, waits for it to exit and returns its result. A
	// non-zero exit code is not an error. If ctx is cancelled the child is
	// killed and the partial result is returned together with ctx.Err().
	Run(ctx context.Context, cmd *Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	WaitDelay time.Duration
}

// NewExecRunner creates a runner with default settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c *Command) (*Result, error) {
	if c == nil || c.Name == "" {
		return nil, errors.New("process name is empty")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Environ()
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Starting process", "command", c.String(), "dir", c.Dir)

	result := &Result{ExitCode: -1}
	result.Start = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	result.PID = cmd.Process.Pid
	if c.OnStart != nil {
		c.OnStart(result.PID)
	}

	err := cmd.Wait()
	result.End = time.Now()
	result.Duration = result.End.Sub(result.Start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to wait for %s: %w", c.Name, err)
	}

	result.ExitCode = 0
	return result, nil
}

// Kill runs the killer command for pid. Its arguments have PIDPlaceholder
// replaced first.
func Kill(ctx context.Context, r Runner, name string, args []string, pid int) (*Result, error) {
	killer := NewCommand(name, SubstitutePID(args, pid)...)
	logger.Info("Running timeout killer", "command", killer.String(), "pid", pid)

	res, err := r.Run(ctx, killer)
	if err != nil {
		return res, fmt.Errorf("killer failed: %w", err)
	}
	if res.ExitCode != 0 {
		logger.Warn("Timeout killer exited with non-zero code", "exitCode", res.ExitCode, "stderr", res.Stderr)
	}
	return res, nil
}
