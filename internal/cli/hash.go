package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fencegate/fencegate/internal/digest"
)

func init() {
	rootCmd.AddCommand(hashCmd)
}

var hashCmd = &cobra.Command{
	Use:   "hash [file]",
	Short: "Print the trust digest of a script file (or stdin)",
	Long: "Computes the digest used for trust comparisons. Paste the output\n" +
		"into a trust note, a trusted file, or `fencegate trust add`.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := readSource(args)
		if err != nil {
			return err
		}
		fmt.Println(digest.Sum(source))
		return nil
	},
}

// readSource reads script text from the named file, or stdin when no
// argument is given.
func readSource(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
