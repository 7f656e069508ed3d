// Package compose runs the external compose tool against a single service
// directory and the container runtime CLI for interactive sessions.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/zpdzap/berth/internal/service"
)

// ErrUnavailable is returned when the external tool cannot be found or started.
var ErrUnavailable = errors.New("executor unavailable")

// Result is the outcome of one compose invocation.
type Result struct {
	ExitCode int
	Stdout   []byte // only set when output was captured
}

// Err converts a non-zero exit into an *ExitError.
func (r Result) Err(args []string) error {
	if r.ExitCode == 0 {
		return nil
	}
	return &ExitError{Code: r.ExitCode, Args: args}
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Code int
	Args []string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.Code)
}

// Executor is the capability set the lifecycle layer needs from the
// orchestration tool. Implementations must not depend on the process
// working directory.
type Executor interface {
	// Run executes the compose tool with args inside svc.Dir. A non-zero exit
	// is reported through Result, not as an error.
	Run(ctx context.Context, svc service.Service, args []string, capture bool) (Result, error)
	// Interactive runs argv attached to the terminal and blocks until it exits.
	Interactive(ctx context.Context, argv []string) error
}

// CLI executes a compose-compatible command line, e.g. "docker compose".
type CLI struct {
	command []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// WaitDelay bounds how long a cancelled child may take to exit after
	// being interrupted before it is killed.
	WaitDelay time.Duration
}

var _ Executor = (*CLI)(nil)

// NewCLI returns an executor for command, wired to the process stdio.
func NewCLI(command []string) *CLI {
	return &CLI{
		command:   append([]string(nil), command...),
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		WaitDelay: 5 * time.Second,
	}
}

func (c *CLI) Run(ctx context.Context, svc service.Service, args []string, capture bool) (Result, error) {
	if len(c.command) == 0 {
		return Result{}, fmt.Errorf("%w: no compose command configured", ErrUnavailable)
	}
	argv := append(append([]string(nil), c.command[1:]...), args...)
	cmd := c.newCmd(ctx, c.command[0], argv)
	cmd.Dir = svc.Dir
	cmd.Stdin = nil

	var out bytes.Buffer
	if capture {
		cmd.Stdout = &out
	} else {
		cmd.Stdout = c.Stdout
	}

	code, err := c.wait(ctx, cmd)
	if err != nil {
		return Result{ExitCode: code}, err
	}
	res := Result{ExitCode: code}
	if capture {
		res.Stdout = out.Bytes()
	}
	return res, nil
}

func (c *CLI) Interactive(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command", ErrUnavailable)
	}
	cmd := c.newCmd(ctx, argv[0], argv[1:])
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout

	code, err := c.wait(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code, Args: argv}
	}
	return nil
}

func (c *CLI) newCmd(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = c.Stderr
	// Interrupt first so the tool can tidy up (compose stops following
	// logs cleanly on SIGINT); WaitDelay escalates to a kill.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = c.WaitDelay
	return cmd
}

// wait runs cmd and returns its exit code. Failing to start is
// ErrUnavailable.
func (c *CLI) wait(ctx context.Context, cmd *exec.Cmd) (int, error) {
	if cmd.Err != nil {
		return -1, fmt.Errorf("%w: %w", ErrUnavailable, cmd.Err)
	}
	return outcome(ctx, cmd.Args[0], cmd.Run())
}

// outcome classifies the error of a finished command. Success wins over a
// late cancellation. A cancelled context, or a child that ended on SIGINT,
// is reported as a context.Canceled error.
func outcome(ctx context.Context, name string, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The terminal interrupts the whole process group, so the child
		// can be reaped before our own signal handler cancels ctx.
		if interrupted(exitErr) {
			return -1, fmt.Errorf("%s interrupted: %w", name, context.Canceled)
		}
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
}

// interruptedStatus is the shell convention for a process ended by SIGINT.
const interruptedStatus = 128 + int(syscall.SIGINT)

func interrupted(exitErr *exec.ExitError) bool {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal() == syscall.SIGINT
	}
	return exitErr.ExitCode() == interruptedStatus
}
