// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrMissingRoot is the sentinel error wrapped by MissingRootError.
var ErrMissingRoot = errors.New("missing root manifest")

// MissingRootError is returned when no root manifest exists for a spec
// that a build requires. Shared environments always build against a root
// manifest, so this aborts the run before any compilation.
type MissingRootError struct {
	// Spec is the environment spec the manifest was looked up for.
	Spec string
	// Path is where the manifest was expected.
	Path string
}

// Error implements the error interface.
func (e *MissingRootError) Error() string {
	return fmt.Sprintf("no root manifest for Python %s (expected %s)", e.Spec, e.Path)
}

// Unwrap returns ErrMissingRoot so callers can use errors.Is for detection.
func (e *MissingRootError) Unwrap() error { return ErrMissingRoot }

// rootSetCacheSize bounds the per-run cache of parsed root manifests. A
// bundle rarely pins more than a handful of interpreter lines.
const rootSetCacheSize = 16

// RootSets loads and caches the root requirement set per environment spec.
// The cache lives for a single run; manifests edited mid-run are not
// re-read.
type RootSets struct {
	rootDir string
	cache   *lru.Cache[string, Set]
}

// NewRootSets creates a RootSets reading manifests from rootDir.
func NewRootSets(rootDir string) (*RootSets, error) {
	cache, err := lru.New[string, Set](rootSetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create root manifest cache: %w", err)
	}
	return &RootSets{rootDir: rootDir, cache: cache}, nil
}

// Load returns the root requirement set for spec, parsing the manifest on
// first use and serving subsequent lookups from the cache. A missing
// manifest is a MissingRootError, not an empty set: a shared environment
// without a declared closure cannot be validated against.
func (r *RootSets) Load(spec string) (Set, error) {
	if set, ok := r.cache.Get(spec); ok {
		return set, nil
	}

	path := RootPath(r.rootDir, spec)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingRootError{Spec: spec, Path: path}
		}
		return nil, fmt.Errorf("stat root manifest %s: %w", path, err)
	}

	set, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(spec, set)
	return set, nil
}

// Path returns where the root manifest for spec lives, whether or not it
// exists.
func (r *RootSets) Path(spec string) string {
	return RootPath(r.rootDir, spec)
}
