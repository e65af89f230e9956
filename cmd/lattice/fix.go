// Fix command recomputes document checksums after manual edits.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Recompute document checksums",
	Long: `Fix recomputes the checksum of both the active and archive documents
from their current content. Use after a deliberate manual edit left a
document failing its checksum; the content itself is taken as-is.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			sysExit("fix", err)
		}

		err = withLockedStore(s, func() error {
			return s.FixChecksum()
		})
		if err != nil {
			sysExit("fix checksums", err)
		}

		if flagJSON {
			return printJSON(map[string]string{"dataDir": s.DataDir(), "result": "checksums recomputed"})
		}
		fmt.Println("Recomputed document checksums")
		return nil
	},
}
