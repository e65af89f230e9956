// Show command displays one task with its relationships.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/relgraph"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

// taskDetail is the show command's output shape.
type taskDetail struct {
	Task         types.Task `json:"task"`
	Parent       string     `json:"parent,omitempty"`
	Children     []string   `json:"children,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Dependents   []string   `json:"dependents,omitempty"`
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task and its relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := types.ValidateTaskID(id); err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			sysExit("show", err)
		}
		set, err := s.LoadTasks()
		if err != nil {
			sysExit("load tasks", err)
		}
		g, err := relgraph.Build(set)
		if err != nil {
			sysExit("build graph", err)
		}

		task, ok := g.Task(id)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrTaskNotFound, id)
		}

		detail := taskDetail{
			Task:         *task,
			Children:     g.Children(id),
			Dependencies: g.Dependencies(id),
			Dependents:   g.Dependents(id),
		}
		if parent, ok := g.Parent(id); ok {
			detail.Parent = parent
		}

		if flagJSON {
			return printJSON(detail)
		}

		fmt.Printf("%s  %s\n", task.ID, task.Title)
		fmt.Printf("  status:   %s\n", task.Status)
		fmt.Printf("  type:     %s\n", task.Type)
		if task.Priority != 0 {
			fmt.Printf("  priority: %d\n", task.Priority)
		}
		if task.Description != "" {
			fmt.Printf("  desc:     %s\n", task.Description)
		}
		if detail.Parent != "" {
			fmt.Printf("  parent:   %s\n", detail.Parent)
		}
		if len(detail.Children) > 0 {
			fmt.Printf("  children: %v\n", detail.Children)
		}
		if len(task.Depends) > 0 {
			fmt.Printf("  depends:  %v\n", task.Depends)
		}
		if len(detail.Dependents) > 0 {
			fmt.Printf("  blocks:   %v\n", detail.Dependents)
		}
		if task.CompletedAt != nil {
			fmt.Printf("  done at:  %s\n", task.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}
