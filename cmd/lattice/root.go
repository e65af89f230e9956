// Root command for the lattice CLI.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/paths"
	"github.com/mesh-intelligence/lattice/pkg/lattice"
)

// Exit codes: user errors exit 1, system errors (I/O, corruption) exit 2.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagRegistry  string
	flagJSON      bool
	flagVerbose   bool
)

// Values loaded from config.yaml by PersistentPreRunE so all
// subcommands can use them.
var (
	configDataDir        string
	configRegistryPath   string
	configRetentionDays  int
	configSafeMode       bool
	configBackupRotation int
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	Prefix:          "lattice",
})

var rootCmd = &cobra.Command{
	Use:           "lattice",
	Short:         "Lattice is a local-first task tracker with cross-project dependencies",
	Version:       lattice.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}

		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configDataDir = cfg.GetString(cfgKeyDataDir)
		configRegistryPath = cfg.GetString(cfgKeyRegistryPath)
		configRetentionDays = cfg.GetInt(cfgKeyRetentionDays)
		configSafeMode = cfg.GetBool(cfgKeySafeMode)
		configBackupRotation = cfg.GetInt(cfgKeyBackupRotation)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.lattice)")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", "", "registry file (default: <config-dir>/registry.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(unarchiveCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(nexusCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(graphCmd)
}

// resolveConfigDir returns the configuration directory:
// --config-dir flag > LATTICE_CONFIG_DIR env > DefaultConfigDir().
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory:
// --data-dir flag > config.yaml data_dir > LATTICE_DATA_DIR env > default $(CWD)/.lattice.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveRegistryPath returns the registry document path:
// --registry flag > config.yaml registry_path > LATTICE_REGISTRY env > <config-dir>/registry.yaml.
func resolveRegistryPath() (string, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return "", err
	}
	return paths.ResolveRegistryPath(flagRegistry, configRegistryPath, configDir)
}
