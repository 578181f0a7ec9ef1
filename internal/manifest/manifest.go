// SPDX-License-Identifier: MPL-2.0

// Package manifest parses pip requirement manifests into normalized
// package-name sets used for shared-environment compatibility checks.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set is a set of normalized requirement names. Names are lower-cased with
// version pins, extras, and environment markers stripped.
type Set map[string]struct{}

// Contains reports whether name (already normalized) is in the set.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts a normalized name into the set.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Names returns the set's members sorted for stable output.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the members of s that are absent from other, sorted.
// An empty result means s is a subset of other.
func (s Set) Missing(other Set) []string {
	var missing []string
	for name := range s {
		if !other.Contains(name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Parse reads a requirements manifest and collects the normalized name of
// each requirement line. Comments, pip flags, URLs, and editable installs
// contribute nothing; malformed lines are skipped rather than rejected.
func Parse(r io.Reader) Set {
	set := make(Set)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name, ok := normalizeLine(scanner.Text()); ok {
			set.Add(name)
		}
	}
	return set
}

// ParseFile parses the manifest at path. A missing file yields an empty
// set, matching tools that declare no requirements at all.
func ParseFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(Set), nil
		}
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f), nil
}

// RootPath returns the path of the root manifest for an environment spec,
// e.g. requirements-3.12.txt under rootDir.
func RootPath(rootDir, spec string) string {
	return filepath.Join(rootDir, "requirements-"+spec+".txt")
}

// normalizeLine extracts the normalized requirement name from a single
// manifest line, reporting whether the line names a requirement at all.
func normalizeLine(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", false
	}
	// pip flags (-r, -e, --index-url, ...) and direct URL requirements do
	// not name an installable package.
	if strings.HasPrefix(s, "-") || strings.Contains(s, "://") {
		return "", false
	}
	// Cut at the first version operator, marker separator, direct
	// reference, or inline comment.
	if i := strings.IndexAny(s, "<>=!~;@#"); i >= 0 {
		s = s[:i]
	}
	// Strip an extras bracket: "requests[socks]" -> "requests".
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	return s, true
}
