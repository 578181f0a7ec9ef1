// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"pybundle-cli/internal/runner"
)

// Call records one invocation observed by a FakeInvoker.
type Call struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Argv returns the full command line as one string for easy matching.
func (c Call) Argv() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// FakeInvoker is a scripted runner.Invoker. Every call is recorded; the
// optional hooks decide results and perform side effects (such as
// materializing a fake venv when a creation command runs).
type FakeInvoker struct {
	// Calls holds every observed invocation in order.
	Calls []Call

	// OnRun, when set, decides the result of Run calls.
	OnRun func(call Call) error
	// OnOutput, when set, decides the result of Output calls.
	OnOutput func(call Call) (string, error)
	// OnLookPath, when set, decides PATH resolution. The default finds
	// nothing, so tests state explicitly which launchers exist.
	OnLookPath func(name string) (string, bool)
}

var _ runner.Invoker = (*FakeInvoker)(nil)

// Run implements runner.Invoker.
func (f *FakeInvoker) Run(_ context.Context, opts runner.Options) error {
	call := Call{Name: opts.Name, Args: opts.Args, Dir: opts.Dir, Env: opts.Env}
	f.Calls = append(f.Calls, call)
	if f.OnRun != nil {
		return f.OnRun(call)
	}
	return nil
}

// Output implements runner.Invoker.
func (f *FakeInvoker) Output(_ context.Context, opts runner.Options) (string, error) {
	call := Call{Name: opts.Name, Args: opts.Args, Dir: opts.Dir, Env: opts.Env}
	f.Calls = append(f.Calls, call)
	if f.OnOutput != nil {
		return f.OnOutput(call)
	}
	return "", nil
}

// LookPath implements runner.Invoker.
func (f *FakeInvoker) LookPath(name string) (string, bool) {
	if f.OnLookPath != nil {
		return f.OnLookPath(name)
	}
	return "", false
}

// RunsMatching counts recorded calls whose command line contains substr.
func (f *FakeInvoker) RunsMatching(substr string) int {
	n := 0
	for _, call := range f.Calls {
		if strings.Contains(call.Argv(), substr) {
			n++
		}
	}
	return n
}

// MakeVenv materializes the skeleton of a virtualenv at dir so the catalog
// treats it as usable, and returns its interpreter path.
func MakeVenv(t *testing.T, dir string) string {
	t.Helper()
	python := VenvPython(dir)
	if err := os.MkdirAll(filepath.Dir(python), 0o755); err != nil {
		t.Fatalf("mkdir venv at %s: %v", dir, err)
	}
	if err := os.WriteFile(python, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write fake interpreter %s: %v", python, err)
	}
	return python
}

// VenvPython returns the interpreter path a virtualenv at dir would have
// on the current platform.
func VenvPython(dir string) string {
	if goruntime.GOOS == "windows" {
		return filepath.Join(dir, "Scripts", "python.exe")
	}
	return filepath.Join(dir, "bin", "python")
}
