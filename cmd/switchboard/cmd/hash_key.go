package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlov7/Switchboard/internal/domain/auth"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [reviewer-key]",
	Short: "Generate an argon2id hash for a reviewer key",
	Long: `Generate an argon2id hash of a reviewer API key for use in config.

The output can be added to reviewer.keys in switchboard.yaml (or the
SWITCHBOARD_REVIEWER_KEYS environment variable, comma-separated).

Example:
  switchboard hash-key "my-reviewer-key"

Security note: The key will appear in shell history.
Consider clearing history after use or using an environment variable:
  switchboard hash-key "$REVIEWER_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashKey(args[0])
		if err != nil {
			return fmt.Errorf("failed to hash key: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
