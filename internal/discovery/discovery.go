// SPDX-License-Identifier: MPL-2.0

// Package discovery finds buildable tool entrypoints in a scripts tree.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pybundle-cli/pkg/pyver"
)

const (
	// sourceExt is the extension of buildable entry files.
	sourceExt = ".py"
	// privatePrefix marks scripts excluded from discovery by default.
	privatePrefix = "_"
)

// Layout indicates how an entrypoint is laid out in the scripts tree.
type Layout int

const (
	// LayoutFile is a bare script directly under the scripts root.
	LayoutFile Layout = iota
	// LayoutDir is a subdirectory containing a same-named entry script.
	LayoutDir
)

// String returns a human-readable layout name.
func (l Layout) String() string {
	switch l {
	case LayoutFile:
		return "file"
	case LayoutDir:
		return "directory"
	default:
		return "unknown"
	}
}

// Entrypoint is one discovered tool: a single source unit that compiles to
// exactly one output artifact. Records are immutable after discovery.
type Entrypoint struct {
	// Name is the unique tool name, derived from the file stem or the
	// directory name.
	Name string
	// Source is the path of the entry script.
	Source string
	// Layout records whether the tool is a bare file or a directory.
	Layout Layout
	// Manifest is the path of the tool's requirements manifest, or ""
	// when the tool declares no requirements.
	Manifest string
	// Pin is the tool's normalized interpreter version spec (e.g. "3.11"),
	// or "" when the tool accepts the default environment.
	Pin string
	// VersionOverride is the tool-level version string recorded next to
	// the bundle version in artifact metadata, or "".
	VersionOverride string
}

// ErrCollision is the sentinel error wrapped by ToolCollisionError.
var ErrCollision = errors.New("tool name collision")

// ToolCollisionError is returned when two entrypoints resolve to the same
// tool name. Discovery fails closed rather than picking one of them.
type ToolCollisionError struct {
	// Name is the colliding tool name.
	Name string
	// FirstSource and SecondSource are the two entry scripts that claimed
	// the name.
	FirstSource  string
	SecondSource string
}

// Error implements the error interface.
func (e *ToolCollisionError) Error() string {
	return fmt.Sprintf("tool name collision: '%s' provided by both:\n  - %s\n  - %s",
		e.Name, e.FirstSource, e.SecondSource)
}

// Unwrap returns ErrCollision so callers can use errors.Is for detection.
func (e *ToolCollisionError) Unwrap() error { return ErrCollision }

// Options controls a discovery pass.
type Options struct {
	// IncludePrivate also discovers scripts whose name starts with "_".
	IncludePrivate bool
}

// Discover scans root for entrypoints and returns them sorted by name.
// Two patterns contribute: *.py files directly under root, and one level
// of subdirectories each containing a same-named entry script. Any name
// collision between the patterns is fatal.
func Discover(root string, opts Options) ([]*Entrypoint, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read scripts directory %s: %w", root, err)
	}

	byName := make(map[string]*Entrypoint)

	// Pattern (a): bare scripts directly under the root.
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sourceExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), sourceExt)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, privatePrefix) && !opts.IncludePrivate {
			continue
		}
		if err := record(byName, fileEntrypoint(root, name)); err != nil {
			return nil, err
		}
	}

	// Pattern (b): one level of tool directories.
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, privatePrefix) && !opts.IncludePrivate {
			continue
		}
		source := filepath.Join(root, name, name+sourceExt)
		if _, err := os.Stat(source); err != nil {
			continue
		}
		if err := record(byName, dirEntrypoint(root, name)); err != nil {
			return nil, err
		}
	}

	found := make([]*Entrypoint, 0, len(byName))
	for _, ep := range byName {
		found = append(found, ep)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, nil
}

// record registers an entrypoint, failing on a duplicate name.
func record(byName map[string]*Entrypoint, ep *Entrypoint) error {
	if existing, ok := byName[ep.Name]; ok {
		return &ToolCollisionError{
			Name:         ep.Name,
			FirstSource:  existing.Source,
			SecondSource: ep.Source,
		}
	}
	byName[ep.Name] = ep
	return nil
}

// fileEntrypoint builds the record for a bare script. Sibling files named
// <name>.requirements.txt, <name>.python-version and <name>.VERSION supply
// the optional manifest, pin, and version override.
func fileEntrypoint(root, name string) *Entrypoint {
	return &Entrypoint{
		Name:            name,
		Source:          filepath.Join(root, name+sourceExt),
		Layout:          LayoutFile,
		Manifest:        existingPath(filepath.Join(root, name+".requirements.txt")),
		Pin:             readPin(filepath.Join(root, name+".python-version")),
		VersionOverride: readLine(filepath.Join(root, name+".VERSION")),
	}
}

// dirEntrypoint builds the record for a tool directory, which carries its
// optional requirements.txt, .python-version and VERSION files inside.
func dirEntrypoint(root, name string) *Entrypoint {
	dir := filepath.Join(root, name)
	return &Entrypoint{
		Name:            name,
		Source:          filepath.Join(dir, name+sourceExt),
		Layout:          LayoutDir,
		Manifest:        existingPath(filepath.Join(dir, "requirements.txt")),
		Pin:             readPin(filepath.Join(dir, ".python-version")),
		VersionOverride: readLine(filepath.Join(dir, "VERSION")),
	}
}

// existingPath returns path when the file exists, "" otherwise.
func existingPath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// readPin reads a version-pin file and normalizes it to a spec. A missing,
// empty, or unparsable pin means no pin.
func readPin(path string) string {
	return pyver.Normalize(readLine(path))
}

// readLine returns the trimmed first line of a file, or "" when the file
// is missing or empty.
func readLine(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line)
}
