// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"pybundle-cli/pkg/pyver"
)

// Metadata is the per-build version descriptor recorded next to the
// PyInstaller spec files. The bundle version string stays verbatim; the
// numeric file version is its parsed 4-tuple.
type Metadata struct {
	Tool          string `toml:"tool"`
	BundleVersion string `toml:"bundle_version"`
	ToolVersion   string `toml:"tool_version,omitempty"`
	FileVersion   string `toml:"file_version"`
}

// Descriptor points at the materialized metadata artifacts for one build.
type Descriptor struct {
	// VersionFile is the PyInstaller version resource script, passed to
	// the compiler on Windows.
	VersionFile string
	// MetadataFile is the TOML descriptor, written on every platform.
	MetadataFile string
	// Tuple is the numeric file version.
	Tuple pyver.Tuple
}

// writeDescriptor computes the numeric version tuple and materializes the
// metadata artifacts into dir. The tool override, when present, is
// recorded alongside the bundle version but never affects the tuple.
func writeDescriptor(dir, tool, bundleVersion, toolVersion string) (*Descriptor, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata directory %s: %w", dir, err)
	}

	tuple := pyver.ParseTuple(bundleVersion)
	desc := &Descriptor{
		VersionFile:  filepath.Join(dir, "version_info.txt"),
		MetadataFile: filepath.Join(dir, "metadata.toml"),
		Tuple:        tuple,
	}

	md := Metadata{
		Tool:          tool,
		BundleVersion: bundleVersion,
		ToolVersion:   toolVersion,
		FileVersion:   tuple.String(),
	}
	data, err := toml.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata for %s: %w", tool, err)
	}
	if err := os.WriteFile(desc.MetadataFile, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", desc.MetadataFile, err)
	}

	script := versionResource(tool, bundleVersion, toolVersion, tuple)
	if err := os.WriteFile(desc.VersionFile, []byte(script), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", desc.VersionFile, err)
	}
	return desc, nil
}

// versionResource renders the PyInstaller VSVersionInfo script stamping
// the artifact's file-version fields.
func versionResource(tool, bundleVersion, toolVersion string, t pyver.Tuple) string {
	display := bundleVersion
	if toolVersion != "" {
		display = fmt.Sprintf("%s (bundle %s)", toolVersion, bundleVersion)
	}
	return fmt.Sprintf(`VSVersionInfo(
  ffi=FixedFileInfo(
    filevers=(%d, %d, %d, %d),
    prodvers=(%d, %d, %d, %d),
    mask=0x3f,
    flags=0x0,
    OS=0x40004,
    fileType=0x1,
    subtype=0x0,
    date=(0, 0)
  ),
  kids=[
    StringFileInfo([
      StringTable('040904B0', [
        StringStruct('FileDescription', %q),
        StringStruct('FileVersion', %q),
        StringStruct('ProductName', 'pybundle tools'),
        StringStruct('ProductVersion', %q),
        StringStruct('OriginalFilename', %q)])
    ]),
    VarFileInfo([VarStruct('Translation', [1033, 1200])])
  ]
)
`,
		t.Major, t.Minor, t.Patch, t.Build,
		t.Major, t.Minor, t.Patch, t.Build,
		tool, display, bundleVersion, tool+".exe")
}
