package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/idelchi/gogen/pkg/cobraext"

	"github.com/idelchi/gece/internal/config"
	"github.com/idelchi/gece/pkg/ece"
)

// NewRootCommand creates the root command with common configuration.
// It sets up environment variable binding and flag handling.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	root := cobraext.NewDefaultRootCommand(version)

	root.Use = "gece [flags] command [flags]"
	root.Short = "Streaming file encryption with encrypted content encoding"
	root.Long = `Encrypts and decrypts files as RFC 8188 encrypted content encoding streams.
Data is processed record by record with bounded memory, and decryption
selects the secret through the key id embedded in each stream.`

	root.Flags().BoolP("show", "s", false, "Show the configuration and exit")
	root.Flags().IntP("parallel", "j", runtime.NumCPU(), "Number of parallel workers, defaults to number of CPUs")
	root.Flags().BoolP("quiet", "q", false, "Suppress non-error output")
	root.Flags().Bool("delete", false, "Delete the original file after successful encryption/decryption")
	root.Flags().Bool("preserve-timestamps", false, "Copy the input modification time to the output")
	root.Flags().Bool("stats", false, "Print a processing summary")

	root.Flags().StringP("key", "k", "", "Secret keying material (hex-encoded)")
	root.Flags().StringP("key-file", "f", "", "Path to a file with the hex-encoded secret keying material")

	root.Flags().String("profile", ece.AES128GCM.Name(), "Content encoding profile (aes128gcm or aes256gcm)")

	root.Flags().String("encrypt-ext", ".ece", "Suffix to append to encrypted files")
	root.Flags().String("decrypt-ext", "", "Suffix to append to decrypted files, after stripping the encrypted suffix")

	root.AddCommand(NewEncryptCommand(cfg), NewDecryptCommand(cfg), NewKeygenCommand())

	return root
}
