// SPDX-License-Identifier: MPL-2.0

package pyver

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"3.11", "3.11"},
		{"3.11.9", "3.11"},
		{"3.11rc1", "3.11"},
		{"3.11.4rc1+local", "3.11"},
		{"3.12-beta2", "3.12"},
		{" 3.9 ", "3.9"},
		{"3", "3"},
		{"", ""},
		{"python", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.raw); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestCompare_OrdersNumerically(t *testing.T) {
	if Compare("3.9", "3.12") >= 0 {
		t.Errorf("Compare(3.9, 3.12) = %d, want < 0", Compare("3.9", "3.12"))
	}
	if Compare("3.12", "3.9") <= 0 {
		t.Errorf("Compare(3.12, 3.9) = %d, want > 0", Compare("3.12", "3.9"))
	}
	if Compare("3.11", "3.11") != 0 {
		t.Errorf("Compare(3.11, 3.11) = %d, want 0", Compare("3.11", "3.11"))
	}
}

func TestParseTuple(t *testing.T) {
	cases := []struct {
		version string
		want    Tuple
	}{
		{"1.4.2-rc1+build5", Tuple{1, 4, 2, 0}},
		{"2", Tuple{2, 0, 0, 0}},
		{"", Tuple{0, 0, 0, 0}},
		{"1.2.3.4", Tuple{1, 2, 3, 0}},
		{"0.9", Tuple{0, 9, 0, 0}},
		{"x.y.z", Tuple{0, 0, 0, 0}},
	}
	for _, c := range cases {
		if got := ParseTuple(c.version); got != c.want {
			t.Errorf("ParseTuple(%q) = %v, want %v", c.version, got, c.want)
		}
	}
}

func TestTupleString(t *testing.T) {
	if got := (Tuple{1, 4, 2, 0}).String(); got != "1.4.2.0" {
		t.Errorf("Tuple.String() = %q, want %q", got, "1.4.2.0")
	}
}
