// SPDX-License-Identifier: MPL-2.0

// Package runner invokes external build processes (python, pip,
// PyInstaller) as blocking subprocesses with captured exit codes.
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
)

// Invoker abstracts subprocess invocation so the orchestrator and the
// environment catalog can be exercised in tests without spawning real
// interpreters.
type Invoker interface {
	// Run executes the command, streaming output, and returns a
	// *CommandError on a non-zero exit.
	Run(ctx context.Context, opts Options) error
	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, opts Options) (string, error)
	// LookPath reports the resolved path of an executable and whether it
	// is present on PATH.
	LookPath(name string) (string, bool)
}

// Options describes one subprocess invocation.
type Options struct {
	// Name is the executable to run, either a path or a name resolved
	// from PATH.
	Name string
	// Args are the command arguments.
	Args []string
	// Dir is the working directory; "" inherits the orchestrator's.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

// ErrCommand is the sentinel error wrapped by CommandError.
var ErrCommand = errors.New("command failed")

// CommandError is returned when a subprocess exits non-zero or cannot be
// started.
type CommandError struct {
	// Name and Args identify the invocation.
	Name string
	Args []string
	// ExitCode is the subprocess exit code, or -1 when it never ran.
	ExitCode int
	// Cause is the underlying error from os/exec.
	Cause error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: exit code %d: %v",
		e.Name, strings.Join(e.Args, " "), e.ExitCode, e.Cause)
}

// Unwrap returns ErrCommand so callers can use errors.Is for detection.
func (e *CommandError) Unwrap() error { return ErrCommand }

// Runner is the real Invoker backed by os/exec. Every invocation blocks
// until the subprocess exits; the orchestrator is strictly sequential.
type Runner struct {
	// Stdout and Stderr receive the subprocess output streams. They
	// default to the orchestrator's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a Runner writing subprocess output to the process streams.
func New() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Invoker.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	cmd := r.command(ctx, opts)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return commandError(opts, err)
	}
	return nil
}

// Output implements Invoker. Stderr still streams so interpreter errors
// stay visible in the build log.
func (r *Runner) Output(ctx context.Context, opts Options) (string, error) {
	var stdout bytes.Buffer
	cmd := r.command(ctx, opts)
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return "", commandError(opts, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Runner) command(ctx context.Context, opts Options) *exec.Cmd {
	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	return cmd
}

// commandError wraps an os/exec failure, extracting the exit code when the
// process actually ran.
func commandError(opts Options, err error) *CommandError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &CommandError{
		Name:     opts.Name,
		Args:     opts.Args,
		ExitCode: code,
		Cause:    err,
	}
}

// LookPath implements Invoker via exec.LookPath.
func (r *Runner) LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	return path, err == nil
}
