// SPDX-License-Identifier: MPL-2.0

// Package config loads the pybundle run configuration: bundle layout paths
// and build options from flags, a .pybundle.toml file, and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for scratch directory layout.
	AppName = "pybundle"
	// ConfigFileName is the config file looked up at the bundle root.
	ConfigFileName = ".pybundle.toml"
	// DefaultBundleVersion is used when the bundle VERSION file is absent
	// or empty.
	DefaultBundleVersion = "0.0.0"
)

// Config describes one pybundle run. Relative paths are resolved against
// RootDir.
type Config struct {
	// RootDir is the bundle root: the directory holding VERSION, the root
	// requirement manifests, and the shared .venv-* environments.
	RootDir string `mapstructure:"root_dir"`
	// ScriptsDir holds the tool entrypoints.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// OutputDir receives one compiled artifact per tool.
	OutputDir string `mapstructure:"output_dir"`
	// ScratchDir holds per-tool work/spec directories and on-demand
	// isolated environments.
	ScratchDir string `mapstructure:"scratch_dir"`
	// VersionFile is the single-line bundle version file.
	VersionFile string `mapstructure:"version_file"`
	// IncludePrivate also discovers underscore-prefixed scripts.
	IncludePrivate bool `mapstructure:"include_private"`
}

// DefaultConfig returns the built-in configuration. The scratch directory
// defaults to the XDG cache location so repeated runs reuse isolated
// environments.
func DefaultConfig() *Config {
	return &Config{
		RootDir:     ".",
		ScriptsDir:  "scripts",
		OutputDir:   "dist",
		ScratchDir:  filepath.Join(xdg.CacheHome, AppName, "build"),
		VersionFile: "VERSION",
	}
}

// Load reads configuration with the usual precedence: defaults, then the
// config file (explicit path, or .pybundle.toml at the bundle root when
// present), then PYBUNDLE_* environment variables.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("root_dir", defaults.RootDir)
	v.SetDefault("scripts_dir", defaults.ScriptsDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("scratch_dir", defaults.ScratchDir)
	v.SetDefault("version_file", defaults.VersionFile)
	v.SetDefault("include_private", false)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else if _, err := os.Stat(ConfigFileName); err == nil {
		// The config file is optional; a missing one is not an error.
		v.SetConfigFile(ConfigFileName)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", ConfigFileName, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ScriptsPath returns the absolute-ish scripts directory.
func (c *Config) ScriptsPath() string { return c.resolve(c.ScriptsDir) }

// OutputPath returns the artifact output directory.
func (c *Config) OutputPath() string { return c.resolve(c.OutputDir) }

// ScratchPath returns the build scratch directory.
func (c *Config) ScratchPath() string { return c.resolve(c.ScratchDir) }

// VersionPath returns the bundle version file path.
func (c *Config) VersionPath() string { return c.resolve(c.VersionFile) }

// resolve joins a path onto the bundle root unless it is already absolute.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RootDir, path)
}

// BundleVersion reads the bundle version string. A missing or empty file
// yields DefaultBundleVersion.
func (c *Config) BundleVersion() string {
	data, err := os.ReadFile(c.VersionPath())
	if err != nil {
		return DefaultBundleVersion
	}
	line, _, _ := strings.Cut(string(data), "\n")
	if v := strings.TrimSpace(line); v != "" {
		return v
	}
	return DefaultBundleVersion
}

// BuildEnv returns extra KEY=VALUE entries for build subprocesses, loaded
// from an optional .env at the scripts root. Pip proxy and index settings
// travel this way without polluting the orchestrator's own environment.
func (c *Config) BuildEnv() ([]string, error) {
	path := filepath.Join(c.ScriptsPath(), ".env")
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	env := make([]string, 0, len(vars))
	for k, val := range vars {
		env = append(env, k+"="+val)
	}
	return env, nil
}
