// Version command for the lattice CLI.
package main

import (
	"fmt"

	"github.com/mesh-intelligence/lattice/pkg/lattice"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lattice v%s\n", lattice.Version)
	},
}
