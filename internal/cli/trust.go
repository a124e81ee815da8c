package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fencegate/fencegate/internal/config"
	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/report"
)

var (
	trustFile   string
	trustDenial bool
)

func init() {
	rootCmd.AddCommand(trustCmd)
	trustCmd.AddCommand(trustAddCmd, trustRemoveCmd, trustListCmd)
	trustAddCmd.Flags().StringVarP(&trustFile, "file", "f", "", "Trust the digest of this script file instead of a literal hash")
	trustAddCmd.Flags().BoolVar(&trustDenial, "denial", false, "Trust the digest of the most recently recorded denial")
}

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage the manual trust list",
}

var trustAddCmd = &cobra.Command{
	Use:   "add [digest]",
	Short: "Add a digest to the manual trust list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		sum, err := trustArgDigest(cfg, args)
		if err != nil {
			return err
		}
		if !cfg.AddHash(string(sum)) {
			fmt.Printf("already trusted: %s\n", sum)
			return nil
		}
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("trusted: %s\n", sum)
		return nil
	},
}

var trustRemoveCmd = &cobra.Command{
	Use:   "remove <digest>",
	Short: "Remove a digest from the manual trust list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		sum := digest.Normalize(args[0])
		if !cfg.RemoveHash(string(sum)) {
			return fmt.Errorf("not in manual trust list: %s", sum)
		}
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("untrusted: %s\n", sum)
		return nil
	},
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List manually trusted digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		for _, h := range cfg.TrustedHashes {
			fmt.Println(h)
		}
		return nil
	},
}

// trustArgDigest resolves the digest to trust: a literal argument,
// the digest of --file, or the latest recorded denial with --denial.
func trustArgDigest(cfg *config.Config, args []string) (digest.Entry, error) {
	if trustDenial {
		return latestDenialDigest(cfg)
	}
	if trustFile != "" {
		source, err := readSource([]string{trustFile})
		if err != nil {
			return "", err
		}
		return digest.Sum(source), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("provide a digest, --file, or --denial")
	}
	return digest.Normalize(args[0]), nil
}

// latestDenialDigest promotes the most recently blocked invocation
// from the denial history.
func latestDenialDigest(cfg *config.Config) (digest.Entry, error) {
	path := denialDBPath(cfg)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no denials recorded")
	}
	store, err := report.OpenStore(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	denials, err := store.List(1)
	if err != nil {
		return "", err
	}
	if len(denials) == 0 {
		return "", fmt.Errorf("no denials recorded")
	}
	return digest.Normalize(denials[0].Digest), nil
}
