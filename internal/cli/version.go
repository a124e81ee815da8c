package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set by ldflags at build time.
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fencegate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}
