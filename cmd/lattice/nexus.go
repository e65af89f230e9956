// Nexus command group manages the cross-project registry.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/nexus"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

var (
	registerName       string
	registerPermission string
	syncAll            bool
)

var nexusCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Manage the cross-project registry",
}

var nexusRegisterCmd = &cobra.Command{
	Use:   "register <path>",
	Short: "Register a project for cross-project queries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		perm := types.PermissionRead
		if registerPermission != "" {
			var err error
			perm, err = types.ParsePermission(registerPermission)
			if err != nil {
				return err
			}
		}

		reg, err := loadRegistry()
		if err != nil {
			sysExit("load registry", err)
		}
		entry, err := reg.Register(args[0], registerName, perm, time.Now())
		if err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			sysExit("save registry", err)
		}

		if flagJSON {
			return printJSON(entry)
		}
		fmt.Printf("Registered %s (%s) with %s permission\n", entry.Name, entry.Hash, entry.Permission)
		return nil
	},
}

var nexusUnregisterCmd = &cobra.Command{
	Use:   "unregister <name>",
	Short: "Remove a project from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			sysExit("load registry", err)
		}
		if err := reg.Unregister(args[0]); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			sysExit("save registry", err)
		}

		if flagJSON {
			return printJSON(map[string]string{"unregistered": args[0]})
		}
		fmt.Printf("Unregistered %s\n", args[0])
		return nil
	},
}

var nexusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			sysExit("load registry", err)
		}
		entries := reg.List()

		if flagJSON {
			return printJSON(entries)
		}
		for _, e := range entries {
			synced := "never"
			if !e.LastSynced.IsZero() {
				synced = e.LastSynced.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-16s %-8s %3d task(s)  synced %s  %s\n", e.Name, e.Permission, e.TaskCount, synced, e.Path)
		}
		return nil
	},
}

var nexusSyncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Refresh a project's cached task count",
	Long: `Sync reloads the target project's store and refreshes its cached task
count and sync timestamp. This is the only way cached registry metadata
changes. With --all, every registered project is synced; projects whose
stores cannot be read are reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncAll == (len(args) == 1) {
			return fmt.Errorf("name a project or pass --all, not both")
		}

		reg, err := loadRegistry()
		if err != nil {
			sysExit("load registry", err)
		}

		var targets []types.RegistryEntry
		if syncAll {
			targets = reg.List()
		} else {
			entry, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrProjectNotFound, args[0])
			}
			targets = append(targets, entry)
		}

		loader := nexus.StoreLoader()
		now := time.Now()
		for _, entry := range targets {
			set, err := loader.LoadTasks(entry.Path)
			if err != nil {
				if syncAll {
					logger.Warn("sync skipped", "project", entry.Name, "err", err)
					continue
				}
				sysExit("load project store", err)
			}
			if err := reg.Sync(entry.Name, len(set.Tasks), now); err != nil {
				return err
			}
			if !flagJSON {
				fmt.Printf("Synced %s: %d task(s)\n", entry.Name, len(set.Tasks))
			}
		}
		if err := reg.Save(); err != nil {
			sysExit("save registry", err)
		}

		if flagJSON {
			return printJSON(reg.List())
		}
		return nil
	},
}

func init() {
	nexusRegisterCmd.Flags().StringVar(&registerName, "name", "", "unique project name (required)")
	nexusRegisterCmd.Flags().StringVar(&registerPermission, "permission", "", "permission level (read, write, execute; default read)")
	nexusRegisterCmd.MarkFlagRequired("name")

	nexusSyncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every registered project")

	nexusCmd.AddCommand(nexusRegisterCmd)
	nexusCmd.AddCommand(nexusUnregisterCmd)
	nexusCmd.AddCommand(nexusListCmd)
	nexusCmd.AddCommand(nexusSyncCmd)
}
