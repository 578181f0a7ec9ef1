// SPDX-License-Identifier: MPL-2.0

// Package pyver handles normalized Python version specifiers and the
// numeric file-version tuples embedded into compiled artifacts.
package pyver

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize reduces a raw version specifier to a major.minor spec usable as
// an environment lookup key. Build metadata (+...) and pre-release suffixes
// (-..., or trailing non-digits as in "3.11rc1") are stripped, and any
// patch component is truncated: "3.11.9" and "3.11rc1+local" both
// normalize to "3.11". An empty or unparsable specifier normalizes to "".
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	parts := strings.SplitN(s, ".", 3)
	major := leadingDigits(parts[0])
	if major == "" {
		return ""
	}
	if len(parts) == 1 {
		return major
	}
	minor := leadingDigits(parts[1])
	if minor == "" {
		return major
	}
	return major + "." + minor
}

// Compare orders two normalized specs, returning -1, 0, or +1 when a is
// lower than, equal to, or higher than b. Comparison is numeric per
// component ("3.12" ranks above "3.9").
func Compare(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// Tuple is the 4-component numeric file version stamped into an artifact.
// The fourth component is always zero.
type Tuple struct {
	Major int
	Minor int
	Patch int
	Build int
}

// ParseTuple maps a semantic-version-like bundle version string onto a
// Tuple. The string is cut at the first '+', then the first '-', and the
// remainder is split on '.'; up to three integer components are parsed,
// absent or unparsable components default to zero. An empty string yields
// the zero Tuple.
func ParseTuple(version string) Tuple {
	s := strings.TrimSpace(version)
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}

	var t Tuple
	fields := []*int{&t.Major, &t.Minor, &t.Patch}
	for i, part := range strings.Split(s, ".") {
		if i >= len(fields) {
			break
		}
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			*fields[i] = n
		}
	}
	return t
}

// String returns the dotted 4-component form, e.g. "1.4.2.0".
func (t Tuple) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", t.Major, t.Minor, t.Patch, t.Build)
}

// leadingDigits returns the leading run of ASCII digits in s.
func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
