// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ScriptsDir != "scripts" {
		t.Errorf("ScriptsDir = %q, want %q", cfg.ScriptsDir, "scripts")
	}
	if cfg.OutputDir != "dist" {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "dist")
	}
	if cfg.IncludePrivate {
		t.Error("IncludePrivate defaults to true, want false")
	}
	if cfg.ScratchDir == "" {
		t.Error("ScratchDir default is empty, want XDG cache location")
	}
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pybundle.toml")
	content := "scripts_dir = \"tools\"\noutput_dir = \"out\"\ninclude_private = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ScriptsDir != "tools" {
		t.Errorf("ScriptsDir = %q, want %q", cfg.ScriptsDir, "tools")
	}
	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "out")
	}
	if !cfg.IncludePrivate {
		t.Error("IncludePrivate = false, want true from config file")
	}
}

func TestLoad_ExplicitMissingConfigFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load() with missing explicit config succeeded, want error")
	}
}

func TestPathResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootDir = "/bundle"
	if got := cfg.ScriptsPath(); got != filepath.Join("/bundle", "scripts") {
		t.Errorf("ScriptsPath() = %q, want under root", got)
	}

	cfg.OutputDir = "/elsewhere/dist"
	if got := cfg.OutputPath(); got != "/elsewhere/dist" {
		t.Errorf("OutputPath() = %q, want absolute path untouched", got)
	}
}

func TestBundleVersion(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.RootDir = root

	if got := cfg.BundleVersion(); got != DefaultBundleVersion {
		t.Errorf("BundleVersion() with no file = %q, want %q", got, DefaultBundleVersion)
	}

	if err := os.WriteFile(filepath.Join(root, "VERSION"), []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}
	if got := cfg.BundleVersion(); got != DefaultBundleVersion {
		t.Errorf("BundleVersion() with empty file = %q, want %q", got, DefaultBundleVersion)
	}

	if err := os.WriteFile(filepath.Join(root, "VERSION"), []byte("1.4.2-rc1+build5\n"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}
	if got := cfg.BundleVersion(); got != "1.4.2-rc1+build5" {
		t.Errorf("BundleVersion() = %q, want verbatim string", got)
	}
}

func TestBuildEnv(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.RootDir = root

	env, err := cfg.BuildEnv()
	if err != nil {
		t.Fatalf("BuildEnv() with no .env error: %v", err)
	}
	if env != nil {
		t.Errorf("BuildEnv() = %v, want nil without .env", env)
	}

	scripts := cfg.ScriptsPath()
	if err := os.MkdirAll(scripts, 0o755); err != nil {
		t.Fatalf("mkdir scripts: %v", err)
	}
	content := "PIP_INDEX_URL=https://pypi.example.com/simple\nPIP_RETRIES=2\n"
	if err := os.WriteFile(filepath.Join(scripts, ".env"), []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	env, err = cfg.BuildEnv()
	if err != nil {
		t.Fatalf("BuildEnv() error: %v", err)
	}
	sort.Strings(env)
	want := []string{
		"PIP_INDEX_URL=https://pypi.example.com/simple",
		"PIP_RETRIES=2",
	}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("BuildEnv() = %v, want %v", env, want)
	}
}
