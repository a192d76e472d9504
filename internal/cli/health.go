package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var minWords int

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health and dictionary size",
		Long: `Check that the server is up and has a dictionary loaded.

Exits non-zero when the server reports fewer than --min-words words,
since every submitted word would then score as invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)

			return checkDictionary(result, minWords)
		},
	}

	cmd.Flags().IntVar(&minWords, "min-words", 1, "Minimum dictionary size to count as healthy")
	return cmd
}

func checkDictionary(result HealthResult, minWords int) error {
	if result.DictionaryWords < minWords {
		return fmt.Errorf("dictionary has %d words, want at least %d", result.DictionaryWords, minWords)
	}
	return nil
}
