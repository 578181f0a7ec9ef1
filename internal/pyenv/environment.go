// SPDX-License-Identifier: MPL-2.0

// Package pyenv models Python build environments (shared and isolated
// virtualenvs) and the catalog that selects one per tool.
package pyenv

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Kind discriminates how an environment may be shared.
type Kind int

const (
	// KindDefaultShared is the bundle-wide default environment, shared by
	// every tool without a pin.
	KindDefaultShared Kind = iota
	// KindPinnedShared is a versioned environment shared by every tool
	// pinned to the same spec.
	KindPinnedShared
	// KindIsolated is private to exactly one tool, created on demand under
	// the build scratch path.
	KindIsolated
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindDefaultShared:
		return "default-shared"
	case KindPinnedShared:
		return "pinned-shared"
	case KindIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// Environment is a resolved Python interpreter to build against. The Kind
// tag is the source of truth for sharing semantics; callers never infer it
// from the directory shape.
type Environment struct {
	// Kind tags the sharing semantics.
	Kind Kind
	// Spec is the normalized major.minor interpreter version.
	Spec string
	// Python is the interpreter executable path.
	Python string
	// Dir is the virtualenv directory, or "" for a bare PATH interpreter.
	Dir string
}

// IsShared reports whether the environment is validated against a root
// manifest before use. Isolated environments are private by construction
// and skip the check.
func (e *Environment) IsShared() bool {
	return e.Kind == KindDefaultShared || e.Kind == KindPinnedShared
}

// Key returns a stable identity string for install memoization. Directory
// separators are normalized so the key is comparable across platforms.
func (e *Environment) Key() string {
	if e.Dir != "" {
		return filepath.ToSlash(e.Dir)
	}
	return "system:" + filepath.ToSlash(e.Python)
}

// venvPython returns the interpreter path inside a virtualenv directory.
func venvPython(dir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "Scripts", "python.exe")
	}
	return filepath.Join(dir, "bin", "python")
}

// sanitize maps an arbitrary identifier onto a filesystem-safe fragment
// for environment directory names.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
