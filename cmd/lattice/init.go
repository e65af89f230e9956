// Init command creates the task store documents for a project.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the task store in the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}

		if err := s.Init(); err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}

		if flagJSON {
			return printJSON(map[string]string{"dataDir": s.DataDir()})
		}
		fmt.Printf("Initialized task store in %s\n", s.DataDir())
		return nil
	},
}
