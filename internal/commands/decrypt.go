package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/gece/internal/config"
	"github.com/idelchi/gece/internal/logic"
)

// NewDecryptCommand creates a new cobra command for the decrypt subcommand.
func NewDecryptCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decrypt [flags] files...",
		Aliases: []string{"dec"},
		Short:   "Decrypt files",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Decrypt = true

			return preRun(cfg)(cmd, args)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return logic.Run(cfg)
		},
	}

	cmd.Flags().String("keyring", "", "Path to a keyring file mapping key ids to hex-encoded secrets")
	cmd.Flags().Uint32("max-rs", 0, "Largest record size to accept, 0 for no limit")

	return cmd
}
