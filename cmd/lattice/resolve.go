// Resolve command looks up tasks across registered projects.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveDeps bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a task query across projects",
	Long: `Resolve looks up a task by query:

  T1          task in the current project
  .:T1        same, explicit
  api:T1      task T1 in the registered project "api"
  *:T1        task T1 in every readable registered project

With --deps, the resolved task's dependency references are classified
per reference as resolved, permission_denied, or not_found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := newCoordinator()
		if err != nil {
			sysExit("resolve", err)
		}

		views, err := coord.ResolveTask(args[0])
		if err != nil {
			return err
		}

		if resolveDeps {
			if len(views) != 1 {
				return fmt.Errorf("--deps needs exactly one match, query matched %d", len(views))
			}
			statuses := coord.ResolveCrossDeps(views[0].Task.Depends, views[0].Project)
			if flagJSON {
				return printJSON(statuses)
			}
			for _, st := range statuses {
				fmt.Printf("%-24s %s\n", st.Ref, st.Status)
			}
			return nil
		}

		if flagJSON {
			return printJSON(views)
		}
		if len(views) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, v := range views {
			fmt.Printf("%s:%s  %-8s %s\n", v.Project, v.Task.ID, v.Task.Status, v.Task.Title)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveDeps, "deps", false, "classify the task's dependency references")
}
