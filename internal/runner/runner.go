// Package runner invokes external tools (detex, LaTeX, BibTeX, ImageMagick,
// Ghostscript) and turns silent failures into explicit errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"latex-length/internal/logger"
	"latex-length/internal/types"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 5 * time.Minute

// stderrTail is how much captured stderr is kept in error details.
const stderrTail = 512

// Command describes one external invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string // appended to os.Environ()
	Stdin io.Reader
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes commands. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs commands as child processes.
type Exec struct {
	Timeout time.Duration
}

// NewExec creates an Exec runner; a zero timeout selects DefaultTimeout.
func NewExec(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exec{Timeout: timeout}
}

// Run executes cmd and waits for it. A tool that cannot be started, times
// out, or exits non-zero yields an ErrExternalTool AppError; the Result is
// still returned when the process ran so callers may inspect its output.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin
	c.WaitDelay = time.Second
	hideWindow(c)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.Debug("running external tool", logger.String("command", cmd.String()), logger.String("dir", cmd.Dir))
	start := time.Now()
	err := c.Run()

	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	logger.Debug("external tool finished",
		logger.String("tool", cmd.Name),
		logger.Int("exitCode", res.ExitCode),
		logger.Any("elapsed", time.Since(start).Round(time.Millisecond)))

	if err == nil {
		return res, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return res, types.NewAppErrorWithDetails(types.ErrExternalTool,
			fmt.Sprintf("%s timed out after %v", cmd.Name, e.Timeout), cmd.String(), ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, types.NewAppErrorWithDetails(types.ErrExternalTool,
			fmt.Sprintf("%s exited with status %d", cmd.Name, res.ExitCode), Tail(res.Stderr), err)
	}
	return nil, types.NewAppErrorWithDetails(types.ErrExternalTool,
		fmt.Sprintf("failed to run %s", cmd.Name), cmd.String(), err)
}

// Tail returns the last part of captured output, trimmed for error messages.
func Tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}

// Available reports whether a tool can be found on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
