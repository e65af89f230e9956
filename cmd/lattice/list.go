// List command queries tasks from the active document with optional
// filtering.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/pkg/types"
)

var (
	listStatus string
	listType   string
	listParent string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with optional filters",
	Long: `List queries tasks from the active document. Filters are ANDed
together; no filters returns every task.

Example:
  lattice list
  lattice list --status pending
  lattice list --parent T1 --status done`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status types.Status
		if listStatus != "" {
			var err error
			status, err = types.ParseStatus(listStatus)
			if err != nil {
				return err
			}
		}
		var taskType types.TaskType
		if listType != "" {
			var err error
			taskType, err = types.ParseTaskType(listType)
			if err != nil {
				return err
			}
		}

		s, err := openStore()
		if err != nil {
			sysExit("list", err)
		}
		set, err := s.LoadTasks()
		if err != nil {
			sysExit("load tasks", err)
		}

		tasks := make([]types.Task, 0, len(set.Tasks))
		for _, t := range set.Tasks {
			if status != "" && t.Status != status {
				continue
			}
			if taskType != "" && t.Type != taskType {
				continue
			}
			if listParent != "" && t.ParentID != listParent {
				continue
			}
			tasks = append(tasks, t)
		}

		if flagJSON {
			return printJSON(tasks)
		}
		for _, t := range tasks {
			fmt.Printf("%-6s %-8s %-8s %s\n", t.ID, t.Status, t.Type, t.Title)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (pending, active, blocked, done)")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by type (task, subtask, epic)")
	listCmd.Flags().StringVar(&listParent, "parent", "", "filter by parent task id")
}
