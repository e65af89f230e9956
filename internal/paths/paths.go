// Package paths resolves configuration, data, and registry file locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory name used when no data dir override is active.
const DefaultDataDirName = ".lattice"

// RegistryFileName is the nexus registry document inside the config dir.
const RegistryFileName = "registry.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir    = "LATTICE_CONFIG_DIR"
	EnvDataDir      = "LATTICE_DATA_DIR"
	EnvRegistryPath = "LATTICE_REGISTRY"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/lattice (fallback ~/.config/lattice)
// macOS:   ~/Library/Application Support/lattice
// Windows: %APPDATA%/lattice
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "lattice"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "lattice"), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "lattice"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > LATTICE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the per-project data directory following the
// precedence chain: flag > config.yaml data_dir > LATTICE_DATA_DIR env >
// $(CWD)/.lattice.
//
// The CWD-relative default keeps each project's store next to the
// project it describes.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveRegistryPath returns the registry document path following the
// precedence chain: flag > config.yaml registry_path > LATTICE_REGISTRY
// env > <config dir>/registry.yaml. The registry is per-user, shared by
// every project the user queries across.
func ResolveRegistryPath(flag, configYAMLValue, configDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvRegistryPath); env != "" {
		return filepath.Abs(env)
	}
	return filepath.Join(configDir, RegistryFileName), nil
}
