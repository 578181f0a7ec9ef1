// SPDX-License-Identifier: MPL-2.0

package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"pybundle-cli/internal/runner"
	"pybundle-cli/pkg/pyver"
)

const (
	// venvPrefix names versioned shared environments, e.g. ".venv-3.12".
	venvPrefix = ".venv-"
	// genericVenv is the unversioned fallback environment directory.
	genericVenv = ".venv"
	// isolatedSubdir is where on-demand isolated environments live under
	// the scratch path.
	isolatedSubdir = "env"
)

// specProbe prints an interpreter's major.minor version.
const specProbe = "import sys; print('%d.%d' % sys.version_info[:2])"

// ErrCreate is the sentinel error wrapped by CreateError.
var ErrCreate = errors.New("environment creation failed")

// CreateError is returned when the venv creation mechanism fails. Always
// fatal: without an environment there is nothing to build against.
type CreateError struct {
	// Spec is the interpreter spec the environment was created for.
	Spec string
	// Dir is the environment directory that could not be materialized.
	Dir string
	// Cause is the underlying failure.
	Cause error
}

// Error implements the error interface.
func (e *CreateError) Error() string {
	return fmt.Sprintf("create environment for Python %s at %s: %v", e.Spec, e.Dir, e.Cause)
}

// Unwrap returns ErrCreate so callers can use errors.Is for detection.
func (e *CreateError) Unwrap() error { return ErrCreate }

// isoKey keys isolated environments. Isolation is per tool, not per
// version: two tools pinned to the same spec never share an entry.
type isoKey struct {
	tool string
	spec string
}

// Catalog enumerates available environments once and hands out a resolved
// Environment per tool. Pinned and isolated environments are materialized
// lazily and memoized; all mutation happens on the single build goroutine.
type Catalog struct {
	rootDir    string
	scratchDir string
	run        runner.Invoker
	logger     *log.Logger

	def       *Environment
	versioned map[string]string // spec -> existing venv dir
	pinned    map[string]*Environment
	isolated  map[isoKey]*Environment
}

// NewCatalog scans rootDir for environments and resolves the default one:
// the highest-versioned usable ".venv-<spec>" directory, then the generic
// ".venv", then a bare interpreter from PATH. Environments without a
// versioned directory name get their spec probed from the interpreter.
func NewCatalog(ctx context.Context, rootDir, scratchDir string, run runner.Invoker, logger *log.Logger) (*Catalog, error) {
	c := &Catalog{
		rootDir:    rootDir,
		scratchDir: scratchDir,
		run:        run,
		logger:     logger,
		versioned:  make(map[string]string),
		pinned:     make(map[string]*Environment),
		isolated:   make(map[isoKey]*Environment),
	}

	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("read bundle root %s: %w", rootDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), venvPrefix) {
			continue
		}
		spec := pyver.Normalize(strings.TrimPrefix(entry.Name(), venvPrefix))
		if spec == "" {
			continue
		}
		dir := filepath.Join(rootDir, entry.Name())
		if !usable(dir) {
			c.logger.Warn("skipping environment without interpreter", "dir", dir)
			continue
		}
		c.versioned[spec] = dir
	}

	def, err := c.resolveDefault(ctx)
	if err != nil {
		return nil, err
	}
	c.def = def
	c.logger.Debug("resolved default environment",
		"kind", def.Kind, "spec", def.Spec, "python", def.Python)
	return c, nil
}

// resolveDefault picks the default-shared environment per the catalog
// fallback chain.
func (c *Catalog) resolveDefault(ctx context.Context) (*Environment, error) {
	if specs := c.Specs(); len(specs) > 0 {
		top := specs[0]
		dir := c.versioned[top]
		return &Environment{
			Kind:   KindDefaultShared,
			Spec:   top,
			Python: venvPython(dir),
			Dir:    dir,
		}, nil
	}

	if dir := filepath.Join(c.rootDir, genericVenv); usable(dir) {
		python := venvPython(dir)
		spec, err := c.probeSpec(ctx, python)
		if err != nil {
			return nil, err
		}
		return &Environment{Kind: KindDefaultShared, Spec: spec, Python: python, Dir: dir}, nil
	}

	for _, name := range []string{"python3", "python"} {
		python, ok := c.run.LookPath(name)
		if !ok {
			continue
		}
		spec, err := c.probeSpec(ctx, python)
		if err != nil {
			return nil, err
		}
		return &Environment{Kind: KindDefaultShared, Spec: spec, Python: python}, nil
	}

	return nil, fmt.Errorf("no usable Python environment or interpreter found under %s", c.rootDir)
}

// Default returns the default-shared environment.
func (c *Catalog) Default() *Environment { return c.def }

// Specs returns the specs of discovered versioned environments, highest
// first.
func (c *Catalog) Specs() []string {
	specs := make([]string, 0, len(c.versioned))
	for spec := range c.versioned {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return pyver.Compare(specs[i], specs[j]) > 0 })
	return specs
}

// Select resolves the environment for a tool's optional pin: no pin or a
// pin matching the default spec uses the default-shared environment, any
// other pin uses (and lazily materializes) the pinned-shared environment
// for that spec.
func (c *Catalog) Select(ctx context.Context, pin string) (*Environment, error) {
	if pin == "" || pin == c.def.Spec {
		return c.def, nil
	}
	return c.EnsurePinned(ctx, pin)
}

// EnsurePinned returns the pinned-shared environment for spec, creating
// its venv on first use. The environment is shared across all tools pinned
// to the same spec.
func (c *Catalog) EnsurePinned(ctx context.Context, spec string) (*Environment, error) {
	if env, ok := c.pinned[spec]; ok {
		return env, nil
	}

	dir, ok := c.versioned[spec]
	if !ok {
		dir = filepath.Join(c.rootDir, venvPrefix+spec)
		if err := c.createVenv(ctx, spec, dir); err != nil {
			return nil, err
		}
		c.versioned[spec] = dir
	}

	env := &Environment{
		Kind:   KindPinnedShared,
		Spec:   spec,
		Python: venvPython(dir),
		Dir:    dir,
	}
	c.pinned[spec] = env
	return env, nil
}

// EnsureIsolated returns the isolated environment for (tool, spec),
// creating it on first use. An empty spec inherits the default spec so the
// isolated interpreter stays in the same family the tool was building
// against.
func (c *Catalog) EnsureIsolated(ctx context.Context, tool, spec string) (*Environment, error) {
	if spec == "" {
		spec = c.def.Spec
	}
	key := isoKey{tool: tool, spec: spec}
	if env, ok := c.isolated[key]; ok {
		return env, nil
	}

	dir := filepath.Join(c.scratchDir, isolatedSubdir, sanitize(tool)+"-"+sanitize(spec))
	if !usable(dir) {
		if err := c.createVenv(ctx, spec, dir); err != nil {
			return nil, err
		}
	}

	env := &Environment{
		Kind:   KindIsolated,
		Spec:   spec,
		Python: venvPython(dir),
		Dir:    dir,
	}
	c.isolated[key] = env
	return env, nil
}

// createVenv materializes a venv at dir using the version-specific
// launcher. Recreating an existing environment is a no-op at the callers;
// this always invokes the mechanism.
func (c *Catalog) createVenv(ctx context.Context, spec, dir string) error {
	name, args, err := c.launcher(spec)
	if err != nil {
		return &CreateError{Spec: spec, Dir: dir, Cause: err}
	}

	c.logger.Info("creating virtual environment", "spec", spec, "dir", dir)
	opts := runner.Options{Name: name, Args: append(args, "-m", "venv", dir)}
	if err := c.run.Run(ctx, opts); err != nil {
		return &CreateError{Spec: spec, Dir: dir, Cause: err}
	}
	if !usable(dir) {
		return &CreateError{Spec: spec, Dir: dir, Cause: errors.New("venv has no interpreter")}
	}
	return nil
}

// launcher resolves the interpreter invocation that can create a venv for
// spec: a versioned interpreter on PATH, then the Windows py launcher,
// then a bare interpreter when no spec is required.
func (c *Catalog) launcher(spec string) (string, []string, error) {
	if spec != "" {
		if python, ok := c.run.LookPath("python" + spec); ok {
			return python, nil, nil
		}
		if py, ok := c.run.LookPath("py"); ok {
			return py, []string{"-" + spec}, nil
		}
		return "", nil, fmt.Errorf("no launcher for Python %s on PATH", spec)
	}
	for _, name := range []string{"python3", "python"} {
		if python, ok := c.run.LookPath(name); ok {
			return python, nil, nil
		}
	}
	return "", nil, errors.New("no Python interpreter on PATH")
}

// probeSpec asks an interpreter for its major.minor version.
func (c *Catalog) probeSpec(ctx context.Context, python string) (string, error) {
	out, err := c.run.Output(ctx, runner.Options{Name: python, Args: []string{"-c", specProbe}})
	if err != nil {
		return "", fmt.Errorf("probe interpreter version of %s: %w", python, err)
	}
	spec := pyver.Normalize(out)
	if spec == "" {
		return "", fmt.Errorf("interpreter %s reported unusable version %q", python, out)
	}
	return spec, nil
}

// usable reports whether dir holds a virtualenv with an interpreter.
func usable(dir string) bool {
	_, err := os.Stat(venvPython(dir))
	return err == nil
}
