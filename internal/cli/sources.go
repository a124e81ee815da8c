package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fencegate/fencegate/internal/config"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured trust sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		for _, ref := range cfg.TrustedNotes {
			fmt.Printf("note      %s\n", ref)
		}
		for _, ref := range cfg.TrustedFiles {
			fmt.Printf("external  %s\n", ref)
		}
		fmt.Printf("manual    %d digest(s)\n", len(cfg.TrustedHashes))
		return nil
	},
}
