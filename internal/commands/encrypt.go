package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/gece/internal/config"
	"github.com/idelchi/gece/internal/logic"
	"github.com/idelchi/gece/pkg/ece"
)

// NewEncryptCommand creates a new cobra command for the encrypt subcommand.
func NewEncryptCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "encrypt [flags] files...",
		Aliases: []string{"enc"},
		Short:   "Encrypt files",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: preRun(cfg),
		RunE: func(_ *cobra.Command, _ []string) error {
			return logic.Run(cfg)
		},
	}

	cmd.Flags().Uint32("rs", ece.DefaultRecordSize, "Ciphertext record size in bytes")
	cmd.Flags().String("key-id", "", "Key id to embed in the stream header (at most 255 bytes)")

	return cmd
}
