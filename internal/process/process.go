// Package process runs a single external program and normalizes how it ended.
//
// Launch failures and non-zero exits come back as a Result so callers can
// format them like any other output. A timeout or a cancelled context is an
// error instead: the child is sent SIGTERM and no Result is produced.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultTimeout applies when no WithTimeout option is given.
const DefaultTimeout = 300 * time.Second

// pipeDrainDelay caps how long Wait keeps reading output after the child
// exits, in case a grandchild still holds the pipes open.
const pipeDrainDelay = 5 * time.Second

// ErrCancelled is wrapped by the error returned when the caller's context
// ends before the process does.
var ErrCancelled = errors.New("command was aborted")

// TimeoutError is returned when the process outlives its timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %dms", e.Timeout.Milliseconds())
}

// IsTimeout reports whether err is a timeout from Run.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Result is the normalized outcome of a finished process.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Success reports whether the program exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

type runConfig struct {
	dir     string
	timeout time.Duration
}

// Option configures a single Run.
type Option func(*runConfig)

// WithDir sets the working directory. Empty means the current directory.
func WithDir(dir string) Option {
	return func(c *runConfig) { c.dir = dir }
}

// WithTimeout bounds the run. A value <= 0 disables the timer.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) { c.timeout = d }
}

// Invoker launches processes. The zero value is ready to use.
type Invoker struct {
	// terminate is swapped in tests to observe signal delivery.
	terminate func(p *os.Process) error
}

// NewInvoker returns an Invoker that stops children with SIGTERM.
func NewInvoker() *Invoker {
	return &Invoker{}
}

func (i *Invoker) kill(p *os.Process) {
	if p == nil {
		return
	}
	if i != nil && i.terminate != nil {
		_ = i.terminate(p)
		return
	}
	_ = p.Signal(syscall.SIGTERM)
}

// Run executes program with args, never through a shell.
func (i *Invoker) Run(ctx context.Context, program string, args []string, opts ...Option) (Result, error) {
	cfg := runConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	cmd := exec.Command(program, args...)
	cmd.Dir = cfg.dir
	cmd.WaitDelay = pipeDrainDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{Stdout: "", Stderr: err.Error(), ExitCode: 1}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timer <-chan time.Time
	if cfg.timeout > 0 {
		t := time.NewTimer(cfg.timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err := <-done:
		return Result{
			Stdout:   strings.TrimSpace(stdout.String()),
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: exitCode(cmd, err),
		}, nil
	case <-timer:
		i.kill(cmd.Process)
		return Result{}, &TimeoutError{Timeout: cfg.timeout}
	case <-ctx.Done():
		i.kill(cmd.Process)
		return Result{}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// exitCode maps the Wait outcome to an integer. A child killed by a signal
// has no exit code and is reported as 0.
func exitCode(cmd *exec.Cmd, err error) int {
	state := cmd.ProcessState
	if state == nil {
		if err != nil {
			return 1
		}
		return 0
	}
	code := state.ExitCode()
	if code < 0 {
		return 0
	}
	return code
}
