// Config loading for the lattice CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyDataDir        = "data_dir"
	cfgKeyRegistryPath   = "registry_path"
	cfgKeyRetentionDays  = "archive.retention_days"
	cfgKeySafeMode       = "archive.safe_mode"
	cfgKeyBackupRotation = "backup.rotation"

	// Defaults.
	defaultRetentionDays  = 30
	defaultSafeMode       = true
	defaultBackupRotation = 5
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Lattice CLI configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Registry file (optional; overridable by --registry flag)
# registry_path:

archive:
  # Completed tasks older than this are eligible for archiving.
  retention_days: 30
  # Refuse to archive tasks with incomplete children or active dependents.
  safe_mode: true

backup:
  # Number of rotating pre-write backups to keep.
  rotation: 5
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on
// first run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyRetentionDays, defaultRetentionDays)
	v.SetDefault(cfgKeySafeMode, defaultSafeMode)
	v.SetDefault(cfgKeyBackupRotation, defaultBackupRotation)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
