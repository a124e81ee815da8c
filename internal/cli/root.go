package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fencegate",
	Short: "Hash-based trust gate for embedded script execution",
	Long: "Gates execution of script fragments embedded in a document vault.\n" +
		"Only content whose hash is on the operator-curated trust list runs;\n" +
		"everything else is blocked and reported in place of output.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.fencegate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
