// Update command edits fields of an existing task.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/relgraph"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

var (
	updateTitle       string
	updateDescription string
	updateStatus      string
	updatePriority    int
	updateParent      string
	updateAddDep      string
	updateRemoveDep   string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a task's fields",
	Long: `Update edits one task in place. Setting --status done records the
completion timestamp; any other status clears it. Parent and dependency
edits are validated against the relationship graph before saving.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := types.ValidateTaskID(id); err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			sysExit("update", err)
		}

		var updated types.Task
		err = withLockedStore(s, func() error {
			set, err := s.LoadTasks()
			if err != nil {
				return err
			}
			task := set.Find(id)
			if task == nil {
				return fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
			}

			if cmd.Flags().Changed("title") {
				task.Title = updateTitle
			}
			if cmd.Flags().Changed("description") {
				task.Description = updateDescription
			}
			if cmd.Flags().Changed("priority") {
				task.Priority = updatePriority
			}
			if cmd.Flags().Changed("status") {
				status, err := types.ParseStatus(updateStatus)
				if err != nil {
					return err
				}
				if err := task.SetStatus(status, time.Now()); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("parent") {
				if updateParent != "" && set.Find(updateParent) == nil {
					return fmt.Errorf("%w: parent %s", types.ErrTaskNotFound, updateParent)
				}
				task.ParentID = updateParent
			}
			if updateAddDep != "" {
				ref, err := types.ParseDepRef(updateAddDep)
				if err != nil {
					return err
				}
				if ref.IsLocal() && set.Find(ref.ID) == nil {
					return fmt.Errorf("%w: %q targets no local task", types.ErrInvalidDepRef, updateAddDep)
				}
				task.Depends = append(task.Depends, updateAddDep)
			}
			if updateRemoveDep != "" {
				kept := task.Depends[:0]
				for _, d := range task.Depends {
					if d != updateRemoveDep {
						kept = append(kept, d)
					}
				}
				task.Depends = kept
			}

			if _, err := relgraph.Build(set); err != nil {
				return err
			}
			if err := s.SaveTasks(set); err != nil {
				sysExit("save tasks", err)
			}
			updated = *task
			return nil
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(updated)
		}
		fmt.Printf("Updated %s\n", updated.ID)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "new description")
	updateCmd.Flags().StringVar(&updateStatus, "status", "", "new status (pending, active, blocked, done)")
	updateCmd.Flags().IntVar(&updatePriority, "priority", 0, "new priority")
	updateCmd.Flags().StringVar(&updateParent, "parent", "", "new parent task id (empty detaches)")
	updateCmd.Flags().StringVar(&updateAddDep, "add-dep", "", "dependency ref to add")
	updateCmd.Flags().StringVar(&updateRemoveDep, "remove-dep", "", "dependency ref to remove")
}
