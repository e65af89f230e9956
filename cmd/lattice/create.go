// Create command adds a new task to the active document.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/relgraph"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

var (
	createTitle       string
	createDescription string
	createType        string
	createPriority    int
	createParent      string
	createDepends     string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		taskType := types.TypeTask
		if createType != "" {
			var err error
			taskType, err = types.ParseTaskType(createType)
			if err != nil {
				return err
			}
		}

		var depends []string
		if createDepends != "" {
			for _, raw := range strings.Split(createDepends, ",") {
				raw = strings.TrimSpace(raw)
				if _, err := types.ParseDepRef(raw); err != nil {
					return err
				}
				depends = append(depends, raw)
			}
		}

		s, err := openStore()
		if err != nil {
			sysExit("create", err)
		}

		var created types.Task
		err = withLockedStore(s, func() error {
			set, err := s.LoadTasks()
			if err != nil {
				return err
			}
			arch, err := s.LoadArchive()
			if err != nil {
				return err
			}

			if createParent != "" && set.Find(createParent) == nil {
				return fmt.Errorf("%w: parent %s", types.ErrTaskNotFound, createParent)
			}
			for _, raw := range depends {
				ref, _ := types.ParseDepRef(raw)
				if ref.IsLocal() && set.Find(ref.ID) == nil {
					return fmt.Errorf("%w: %q targets no local task", types.ErrInvalidDepRef, raw)
				}
			}

			task := types.Task{
				ID:          s.NextID(set, arch),
				Title:       createTitle,
				Description: createDescription,
				Status:      types.StatusPending,
				Priority:    createPriority,
				Type:        taskType,
				ParentID:    createParent,
				Depends:     depends,
				CreatedAt:   time.Now(),
			}
			if err := set.Add(task); err != nil {
				return err
			}
			if _, err := relgraph.Build(set); err != nil {
				return err
			}
			if err := s.SaveTasks(set); err != nil {
				sysExit("save tasks", err)
			}
			created = task
			return nil
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(created)
		}
		fmt.Printf("Created %s: %s\n", created.Type, created.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "task title (required)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "task description")
	createCmd.Flags().StringVar(&createType, "type", "", "task type (task, subtask, epic)")
	createCmd.Flags().IntVar(&createPriority, "priority", 0, "task priority")
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent task id")
	createCmd.Flags().StringVar(&createDepends, "depends", "", "comma-separated dependency refs (T2 or project:T2)")

	createCmd.MarkFlagRequired("title")
}
