package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fencegate/fencegate/internal/config"
	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/policy"
	"github.com/fencegate/fencegate/internal/truststore"
	"github.com/fencegate/fencegate/internal/vault"
)

var checkIntegration string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkIntegration, "integration", "i", "python-runner", "Integration name the script would run under")
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Report the verdict for a script file (or stdin)",
	Long: "Evaluates a script against the configured trust sources and\n" +
		"override flags, exactly as the gate would at invocation time.\n\n" +
		"Exit code 0 if the script would run, 1 if it would be blocked.\n" +
		"Use in CI to keep vault scripts on the trust list.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, err := readSource(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := truststore.New(vault.Open(cfg.Vault), cfg.Manual(), cfg.Sources())
	snap := store.Refresh(cmd.Context())

	sum := digest.Sum(source)
	verdict := policy.Decide(sum, checkIntegration, cfg.Flags(), snap)

	fmt.Printf("digest:  %s\nverdict: %s\n", sum, verdict)
	if verdict == policy.Deny {
		fmt.Printf("\nTrust it with: fencegate trust add %s\n", sum)
		return &policy.DeniedError{Digest: sum, Integration: checkIntegration}
	}
	return nil
}
