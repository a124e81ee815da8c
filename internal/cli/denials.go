package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fencegate/fencegate/internal/config"
	"github.com/fencegate/fencegate/internal/report"
)

var denialsLimit int

func init() {
	rootCmd.AddCommand(denialsCmd)
	denialsCmd.Flags().IntVarP(&denialsLimit, "limit", "n", 20, "Maximum denials to show (0 = all)")
}

// denialDBPath resolves the denial database location: configured, or
// next to the default config file.
func denialDBPath(cfg *config.Config) string {
	if cfg.DenialDB != "" {
		return cfg.DenialDB
	}
	return filepath.Join(filepath.Dir(config.DefaultPath()), "denials.db")
}

var denialsCmd = &cobra.Command{
	Use:   "denials",
	Short: "List recently blocked invocations",
	Long: "Shows the denial history recorded by the gate. Promote a blocked\n" +
		"digest with: fencegate trust add <digest>",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		path := denialDBPath(cfg)
		if _, err := os.Stat(path); err != nil {
			fmt.Println("no denials recorded")
			return nil
		}

		store, err := report.OpenStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		denials, err := store.List(denialsLimit)
		if err != nil {
			return err
		}
		if len(denials) == 0 {
			fmt.Println("no denials recorded")
			return nil
		}
		for _, d := range denials {
			fmt.Printf("%s  %-14s  %s:%d\n  %s\n",
				d.Time.Format(time.RFC3339), d.Integration, d.Note, d.Line, d.Digest)
		}
		return nil
	},
}
