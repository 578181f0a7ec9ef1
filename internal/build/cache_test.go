// SPDX-License-Identifier: MPL-2.0

package build

import (
	"os"
	"path/filepath"
	"testing"

	"pybundle-cli/internal/pyenv"
)

func TestCache_InstallKeyedByEnvAndManifest(t *testing.T) {
	dir := t.TempDir()
	manifestA := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(manifestA, []byte("requests\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	shared := &pyenv.Environment{Kind: pyenv.KindDefaultShared, Dir: filepath.Join(dir, ".venv-3.12")}
	isolated := &pyenv.Environment{Kind: pyenv.KindIsolated, Dir: filepath.Join(dir, "env", "wget-3.12")}

	c := NewCache()
	if c.Installed(shared, manifestA) {
		t.Error("fresh cache reports install as done")
	}

	c.MarkInstalled(shared, manifestA)
	if !c.Installed(shared, manifestA) {
		t.Error("recorded install not reported")
	}
	if c.Installed(isolated, manifestA) {
		t.Error("install recorded for one environment leaked to another")
	}
}

func TestCache_ManifestKeyUsesContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	for _, path := range []string{a, b} {
		if err := os.WriteFile(path, []byte("requests\n"), 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
	}

	env := &pyenv.Environment{Dir: filepath.Join(dir, ".venv")}
	c := NewCache()
	c.MarkInstalled(env, a)
	// Same content under a different path is the same install action.
	if !c.Installed(env, b) {
		t.Error("identical manifest content at a new path missed the cache")
	}
}

func TestCache_Ready(t *testing.T) {
	env := &pyenv.Environment{Dir: "/bundle/.venv-3.12"}
	other := &pyenv.Environment{Dir: "/scratch/env/wget-3.12"}

	c := NewCache()
	if c.Ready(env) {
		t.Error("fresh cache reports environment ready")
	}
	c.MarkReady(env)
	if !c.Ready(env) {
		t.Error("recorded readiness not reported")
	}
	if c.Ready(other) {
		t.Error("readiness leaked across environments")
	}
}
