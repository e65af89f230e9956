// Graph command group analyzes the global dependency graph.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lattice/internal/nexus"
	"github.com/mesh-intelligence/lattice/pkg/types"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Analyze the cross-project dependency graph",
}

var graphCriticalPathCmd = &cobra.Command{
	Use:   "critical-path",
	Short: "Show the longest dependency chain across projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			sysExit("graph", err)
		}
		cp, err := coord.CriticalPath()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cp)
		}
		fmt.Printf("Critical path: %d edge(s)\n", cp.Length)
		for _, node := range cp.Path {
			fmt.Printf("  %s\n", node)
		}
		return nil
	},
}

var graphBlockingCmd = &cobra.Command{
	Use:   "blocking <project:id>",
	Short: "Show every task transitively waiting on one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			sysExit("graph", err)
		}

		node, err := parseNodeKey(args[0])
		if err != nil {
			return err
		}
		report, err := coord.BlockingAnalysis(node)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(report)
		}
		fmt.Printf("%s blocks %d task(s)\n", report.Node, len(report.Blocking))
		for _, n := range report.Blocking {
			fmt.Printf("  %s\n", n)
		}
		return nil
	},
}

var graphOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Find dependency references whose target no longer exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			sysExit("graph", err)
		}
		orphans, err := coord.OrphanDetection()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(orphans)
		}
		if len(orphans) == 0 {
			fmt.Println("no orphaned references")
			return nil
		}
		for _, o := range orphans {
			fmt.Printf("%s:%s -> %s (%s)\n", o.Project, o.TaskID, o.Ref, o.Reason)
		}
		return nil
	},
}

// parseNodeKey parses "project:Tn" into a graph node key. A bare task
// id binds to the current project.
func parseNodeKey(raw string) (nexus.NodeKey, error) {
	ref, err := types.ParseDepRef(raw)
	if err != nil {
		return nexus.NodeKey{}, err
	}
	if ref.IsLocal() {
		reg, err := loadRegistry()
		if err != nil {
			return nexus.NodeKey{}, err
		}
		current := currentProjectName(reg)
		if current == "" {
			return nexus.NodeKey{}, fmt.Errorf("%w: %q needs a current project", types.ErrInvalidQuery, raw)
		}
		return nexus.NodeKey{Project: current, ID: ref.ID}, nil
	}
	return nexus.NodeKey{Project: ref.Project, ID: ref.ID}, nil
}

func init() {
	graphCmd.AddCommand(graphCriticalPathCmd)
	graphCmd.AddCommand(graphBlockingCmd)
	graphCmd.AddCommand(graphOrphansCmd)
}
