// SPDX-License-Identifier: MPL-2.0

// Package build orchestrates the bundle build: it validates each tool
// against its shared environment, provisions requirements, falls back to
// an isolated environment on install failure, and drives PyInstaller.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	"github.com/charmbracelet/log"

	"pybundle-cli/internal/config"
	"pybundle-cli/internal/discovery"
	"pybundle-cli/internal/manifest"
	"pybundle-cli/internal/pyenv"
	"pybundle-cli/internal/runner"
)

// Orchestrator runs the sequential build loop over discovered tools.
// All state (install cache, lazily created environments) is confined to
// the single build goroutine.
type Orchestrator struct {
	cfg     *config.Config
	catalog *pyenv.Catalog
	roots   *manifest.RootSets
	run     runner.Invoker
	cache   *Cache
	logger  *log.Logger

	bundleVersion string
	buildEnv      []string
}

// New assembles an orchestrator over an already-constructed environment
// catalog.
func New(cfg *config.Config, catalog *pyenv.Catalog, run runner.Invoker, logger *log.Logger) (*Orchestrator, error) {
	roots, err := manifest.NewRootSets(cfg.RootDir)
	if err != nil {
		return nil, err
	}
	buildEnv, err := cfg.BuildEnv()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:           cfg,
		catalog:       catalog,
		roots:         roots,
		run:           run,
		cache:         NewCache(),
		logger:        logger,
		bundleVersion: cfg.BundleVersion(),
		buildEnv:      buildEnv,
	}, nil
}

// Run discovers the bundle's tools, validates every shared-environment
// tool up front, then builds each tool in turn. The first fatal error
// aborts the run; artifacts are only complete when Run returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	tools, err := discovery.Discover(o.cfg.ScriptsPath(), discovery.Options{
		IncludePrivate: o.cfg.IncludePrivate,
	})
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		return fmt.Errorf("no tools found under %s", o.cfg.ScriptsPath())
	}
	o.logger.Info("starting bundle build",
		"version", o.bundleVersion, "tools", len(tools),
		"default", o.catalog.Default().Spec)

	if err := o.preflight(tools); err != nil {
		return err
	}

	for _, ep := range tools {
		if err := o.buildTool(ctx, ep); err != nil {
			return err
		}
	}
	o.logger.Info("bundle build complete", "tools", len(tools), "output", o.cfg.OutputPath())
	return nil
}

// preflight checks every tool's declared requirements against its shared
// environment's root manifest before any compilation happens, so a
// mismatch never leaves a partially published artifact set.
func (o *Orchestrator) preflight(tools []*discovery.Entrypoint) error {
	// The default spec's root manifest is required even when every tool
	// is pinned elsewhere.
	if _, err := o.roots.Load(o.catalog.Default().Spec); err != nil {
		return err
	}
	for _, ep := range tools {
		if err := o.validate(ep); err != nil {
			return err
		}
	}
	return nil
}

// validate enforces the shared-use contract: a tool may only build in a
// shared environment when its requirement names are a subset of that
// environment's root set. A mismatch is fatal by design, never recovered
// through isolation.
func (o *Orchestrator) validate(ep *discovery.Entrypoint) error {
	spec := ep.Pin
	if spec == "" {
		spec = o.catalog.Default().Spec
	}
	rootSet, err := o.roots.Load(spec)
	if err != nil {
		return err
	}
	if ep.Manifest == "" {
		return nil
	}
	toolSet, err := manifest.ParseFile(ep.Manifest)
	if err != nil {
		return err
	}
	if missing := toolSet.Missing(rootSet); len(missing) > 0 {
		return &MismatchError{Tool: ep.Name, Spec: spec, Missing: missing}
	}
	return nil
}

// attemptState models the per-tool build progression. A tool attempts its
// shared environment first and may transition to an isolated environment
// exactly once, on an install failure.
type attemptState int

const (
	attemptShared attemptState = iota
	attemptIsolated
	attemptDone
)

// buildTool provisions and compiles one tool, driving the attempt state
// machine.
func (o *Orchestrator) buildTool(ctx context.Context, ep *discovery.Entrypoint) error {
	env, err := o.catalog.Select(ctx, ep.Pin)
	if err != nil {
		return err
	}
	o.logger.Info("building tool", "tool", ep.Name, "env", env.Kind, "spec", env.Spec)

	state := attemptShared
	for {
		switch state {
		case attemptShared:
			err := o.provision(ctx, ep, env)
			if err == nil {
				state = attemptDone
				break
			}
			if !errors.Is(err, ErrInstall) {
				return err
			}
			o.logger.Warn("shared install failed, retrying in isolated environment",
				"tool", ep.Name, "spec", env.Spec, "error", err)
			state = attemptIsolated

		case attemptIsolated:
			iso, err := o.catalog.EnsureIsolated(ctx, ep.Name, env.Spec)
			if err != nil {
				return err
			}
			env = iso
			// No second fallback: any failure here is fatal.
			if err := o.provision(ctx, ep, env); err != nil {
				return err
			}
			state = attemptDone

		case attemptDone:
			desc, err := writeDescriptor(o.specDir(ep), ep.Name, o.bundleVersion, ep.VersionOverride)
			if err != nil {
				return err
			}
			return o.compile(ctx, ep, env, desc)
		}
	}
}

// provision makes env able to build ep: the environment's own root build
// dependencies first (the packaging tool rides in the root manifest), then
// the tool's declared requirements.
func (o *Orchestrator) provision(ctx context.Context, ep *discovery.Entrypoint, env *pyenv.Environment) error {
	if err := o.ensureReady(ctx, ep, env); err != nil {
		return err
	}
	if ep.Manifest == "" {
		return nil
	}
	return o.install(ctx, ep, env, ep.Manifest)
}

// ensureReady installs the root manifest for env's spec once per
// environment per run, confirming the packaging tool is present.
func (o *Orchestrator) ensureReady(ctx context.Context, ep *discovery.Entrypoint, env *pyenv.Environment) error {
	if o.cache.Ready(env) {
		return nil
	}
	if _, err := o.roots.Load(env.Spec); err != nil {
		return err
	}
	if err := o.install(ctx, ep, env, o.roots.Path(env.Spec)); err != nil {
		return err
	}
	o.cache.MarkReady(env)
	return nil
}

// install runs pip for one manifest, memoized per (environment, manifest)
// within the run. Reinstalling an already-satisfied manifest is safe; the
// cache only saves the redundant subprocess.
func (o *Orchestrator) install(ctx context.Context, ep *discovery.Entrypoint, env *pyenv.Environment, manifestPath string) error {
	if o.cache.Installed(env, manifestPath) {
		o.logger.Debug("install already satisfied this run",
			"tool", ep.Name, "manifest", manifestPath)
		return nil
	}
	o.logger.Info("installing requirements",
		"tool", ep.Name, "manifest", manifestPath, "env", env.Kind, "spec", env.Spec)

	opts := runner.Options{
		Name: env.Python,
		Args: []string{"-m", "pip", "install", "-r", manifestPath},
		Env:  o.buildEnv,
	}
	if err := o.run.Run(ctx, opts); err != nil {
		return &InstallError{Tool: ep.Name, Manifest: manifestPath, Env: env, Cause: err}
	}
	o.cache.MarkInstalled(env, manifestPath)
	return nil
}

// compile invokes PyInstaller once for the tool with collision-free work
// and spec directories, writing the artifact into the shared output
// directory. The version resource is only passed on Windows, where the
// file-version fields exist.
func (o *Orchestrator) compile(ctx context.Context, ep *discovery.Entrypoint, env *pyenv.Environment, desc *Descriptor) error {
	outDir := o.cfg.OutputPath()
	workDir := filepath.Join(o.cfg.ScratchPath(), "work", ep.Name)
	for _, dir := range []string{outDir, workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create build directory %s: %w", dir, err)
		}
	}

	args := []string{
		"-m", "PyInstaller",
		"--onefile",
		"--clean",
		"--noconfirm",
		"--name", ep.Name,
		"--distpath", outDir,
		"--workpath", workDir,
		"--specpath", o.specDir(ep),
	}
	if goruntime.GOOS == "windows" {
		args = append(args, "--version-file", desc.VersionFile)
	}
	args = append(args, ep.Source)

	o.logger.Info("compiling tool",
		"tool", ep.Name, "python", env.Python, "version", desc.Tuple)
	opts := runner.Options{Name: env.Python, Args: args, Env: o.buildEnv}
	if err := o.run.Run(ctx, opts); err != nil {
		return &CompileError{Tool: ep.Name, Cause: err}
	}
	o.logger.Info("tool compiled", "tool", ep.Name, "output", filepath.Join(outDir, ep.Name))
	return nil
}

// specDir is the per-tool PyInstaller spec and metadata directory.
func (o *Orchestrator) specDir(ep *discovery.Entrypoint) string {
	return filepath.Join(o.cfg.ScratchPath(), "spec", ep.Name)
}
