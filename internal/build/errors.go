// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"strings"

	"pybundle-cli/internal/pyenv"
)

// Sentinel errors for programmatic detection with errors.Is.
var (
	// ErrMismatch is wrapped by MismatchError.
	ErrMismatch = errors.New("shared environment mismatch")
	// ErrInstall is wrapped by InstallError.
	ErrInstall = errors.New("requirement install failed")
	// ErrCompile is wrapped by CompileError.
	ErrCompile = errors.New("compile failed")
)

// MismatchError is returned when a tool declares a requirement that is
// absent from the shared environment's root manifest. This is a
// design-time correctness check on declared names, not an install result,
// and it is always fatal: a tool must not silently reuse a shared closure
// it has not declared against.
type MismatchError struct {
	// Tool is the offending tool name.
	Tool string
	// Spec is the shared environment's spec.
	Spec string
	// Missing lists the declared names absent from the root set, sorted.
	Missing []string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"tool '%s' is not covered by the Python %s root manifest: missing %s",
		e.Tool, e.Spec, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrMismatch so callers can use errors.Is for detection.
func (e *MismatchError) Unwrap() error { return ErrMismatch }

// InstallError is returned when a pip install into an environment fails.
// For a shared environment this triggers the isolated fallback; for an
// isolated environment it is fatal, since there is no further fallback.
type InstallError struct {
	// Tool is the tool the install was running for.
	Tool string
	// Manifest is the manifest being installed.
	Manifest string
	// Env is the target environment.
	Env *pyenv.Environment
	// Cause is the underlying pip failure.
	Cause error
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s for tool '%s' into %s environment: %v",
		e.Manifest, e.Tool, e.Env.Kind, e.Cause)
}

// Unwrap returns ErrInstall so callers can use errors.Is for detection.
func (e *InstallError) Unwrap() error { return ErrInstall }

// CompileError is returned when the PyInstaller invocation exits non-zero.
// Always fatal for the run.
type CompileError struct {
	// Tool is the tool that failed to compile.
	Tool string
	// Cause is the underlying invocation failure.
	Cause error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile tool '%s': %v", e.Tool, e.Cause)
}

// Unwrap returns ErrCompile so callers can use errors.Is for detection.
func (e *CompileError) Unwrap() error { return ErrCompile }
