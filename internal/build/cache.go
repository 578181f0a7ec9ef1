// SPDX-License-Identifier: MPL-2.0

package build

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"pybundle-cli/internal/pyenv"
)

// installKey identifies one install action: an environment identity plus a
// manifest content hash. Structured on purpose so keys cannot collide
// across platforms with different path separators.
type installKey struct {
	env      string
	manifest string
}

// Cache is the process-lifetime build memoization: which install actions
// already succeeded this run and which environments are confirmed ready
// for packaging. Never persisted; only the single build goroutine writes
// to it.
type Cache struct {
	installs map[installKey]bool
	ready    map[string]bool
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		installs: make(map[installKey]bool),
		ready:    make(map[string]bool),
	}
}

// Installed reports whether the (environment, manifest) install already
// succeeded this run.
func (c *Cache) Installed(env *pyenv.Environment, manifestPath string) bool {
	return c.installs[keyFor(env, manifestPath)]
}

// MarkInstalled records a successful (environment, manifest) install.
func (c *Cache) MarkInstalled(env *pyenv.Environment, manifestPath string) {
	c.installs[keyFor(env, manifestPath)] = true
}

// Ready reports whether the environment has been confirmed to carry the
// packaging tool this run.
func (c *Cache) Ready(env *pyenv.Environment) bool {
	return c.ready[env.Key()]
}

// MarkReady records that the environment carries the packaging tool.
func (c *Cache) MarkReady(env *pyenv.Environment) {
	c.ready[env.Key()] = true
}

// keyFor builds the structured install key. The manifest component is the
// content hash so a re-pointed path with identical content still hits;
// when the file cannot be read the normalized path stands in.
func keyFor(env *pyenv.Environment, manifestPath string) installKey {
	return installKey{env: env.Key(), manifest: manifestID(manifestPath)}
}

func manifestID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "path:" + filepath.ToSlash(path)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
