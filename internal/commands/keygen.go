package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

// NewKeygenCommand creates a new cobra command for the keygen subcommand.
func NewKeygenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keygen",
		Aliases: []string{"gen"},
		Short:   "Generate new secret keying material",
		RunE: func(cmd *cobra.Command, _ []string) error {
			size, err := cmd.Flags().GetInt("bytes")
			if err != nil {
				return fmt.Errorf("reading flag: %w", err)
			}

			secret := make([]byte, size)
			if _, err := rand.Read(secret); err != nil {
				return fmt.Errorf("generating key: %w", err)
			}

			fmt.Println(hex.EncodeToString(secret)) //nolint:forbidigo

			return nil
		},
	}

	cmd.Flags().IntP("bytes", "b", 16, "Key length in bytes")

	return cmd
}
