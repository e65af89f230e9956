// Unarchive command restores an archived task to the active document.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Restore an archived task to the active document",
	Long: `Unarchive moves the most recent archive record for the given id back
into the active document. Dependency references to other archived tasks
were stripped when the task was archived and are not reconstructed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := types.ValidateTaskID(id); err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			sysExit("unarchive", err)
		}

		err = withLockedStore(s, func() error {
			set, err := s.LoadTasks()
			if err != nil {
				return err
			}
			arch, err := s.LoadArchive()
			if err != nil {
				return err
			}

			if set.Find(id) != nil {
				return fmt.Errorf("%w: %s is already active", types.ErrDuplicateID, id)
			}
			rec := arch.Remove(id)
			if rec == nil {
				return fmt.Errorf("%w: %s is not archived", types.ErrTaskNotFound, id)
			}
			if err := set.Add(rec.Task); err != nil {
				return err
			}

			if _, err := s.CommitArchive(set, arch, "unarchive"); err != nil {
				sysExit("commit unarchive", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(map[string]string{"restored": id})
		}
		fmt.Printf("Restored %s\n", id)
		return nil
	},
}
