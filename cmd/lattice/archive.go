// Archive command moves completed tasks to the archive document.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/archive"
	"github.com/mesh-intelligence/lattice/internal/relgraph"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

var (
	archiveCascade         bool
	archiveFrom            string
	archiveDryRun          bool
	archiveNoSafeMode      bool
	archiveForce           bool
	archiveBypassRetention bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive completed tasks past the retention window",
	Long: `Archive moves done tasks older than the configured retention window
from the active document to the archive document. Both documents are
committed atomically; a safety backup of the prior state is kept.

With --cascade, a fully completed parent/child family touched by any
eligible task is archived as one unit. With --from, the named done task
and its done descendants are archived regardless of retention. Safe
mode refuses tasks that still have incomplete children or active
dependents; --force overrides it for this run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if archiveFrom != "" {
			if err := types.ValidateTaskID(archiveFrom); err != nil {
				return err
			}
			if archiveCascade {
				return fmt.Errorf("--cascade and --from are mutually exclusive")
			}
		}

		s, err := openStore()
		if err != nil {
			sysExit("archive", err)
		}

		var report *archive.Report
		err = withLockedStore(s, func() error {
			set, err := s.LoadTasks()
			if err != nil {
				return err
			}
			arch, err := s.LoadArchive()
			if err != nil {
				return err
			}
			g, err := relgraph.Build(set)
			if err != nil {
				return err
			}

			retentionDays := configRetentionDays
			if archiveBypassRetention {
				retentionDays = 0
			}

			engine := archive.NewEngine(nil)
			plan, err := engine.Plan(set, g, archive.Options{
				Eligible:    retentionEligible(retentionDays, time.Now()),
				Cascade:     archiveCascade,
				CascadeFrom: archiveFrom,
				SafeMode:    configSafeMode && !archiveNoSafeMode,
				Override:    archiveForce,
				DryRun:      archiveDryRun,
				OperationID: s.NewOperationID(),
			})
			if err != nil {
				return err
			}
			report = plan.Report

			if archiveDryRun {
				return nil
			}
			arch.Archived = append(arch.Archived, plan.Records...)
			if _, err := s.CommitArchive(plan.Active, arch, "archive"); err != nil {
				sysExit("commit archive", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(report)
		}
		printArchiveReport(report)
		return nil
	},
}

func printArchiveReport(r *archive.Report) {
	verb := "Archived"
	if r.DryRun {
		verb = "Would archive"
	}
	fmt.Printf("%s %d task(s)\n", verb, r.Archived.Count)
	for _, id := range r.Archived.TaskIDs {
		fmt.Printf("  %s\n", id)
	}
	for _, fam := range r.CascadedFamilies {
		fmt.Printf("  family %s: %v\n", fam.Parent, fam.Children)
	}
	for _, skipped := range r.SkippedFamilies {
		fmt.Printf("  skipped family %s: %s\n", skipped.Root, skipped.Reason)
	}
	for _, id := range r.Blocked.ByChildren {
		fmt.Printf("  blocked by children: %s\n", id)
	}
	for _, id := range r.Blocked.ByDependents {
		fmt.Printf("  blocked by dependents: %s\n", id)
	}
	for _, w := range r.Warnings {
		logger.Warn(w)
	}
}

func init() {
	archiveCmd.Flags().BoolVar(&archiveCascade, "cascade", false, "archive complete families as units")
	archiveCmd.Flags().StringVar(&archiveFrom, "from", "", "archive the named done task and its done descendants")
	archiveCmd.Flags().BoolVar(&archiveDryRun, "dry-run", false, "plan without persisting")
	archiveCmd.Flags().BoolVar(&archiveNoSafeMode, "no-safe-mode", false, "disable safe mode for this run")
	archiveCmd.Flags().BoolVar(&archiveForce, "force", false, "override safe mode blocks")
	archiveCmd.Flags().BoolVar(&archiveBypassRetention, "bypass-retention", false, "ignore the retention window")
}
