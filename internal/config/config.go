// Package config defines the runtime configuration for the gece CLI.
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Key holds the secret keying material sources. At most one may be set.
type Key struct {
	// String is the hex-encoded secret given directly on the command line.
	String string `mapstructure:"key" validate:"omitempty,hexadecimal"`

	// File points at a file holding the hex-encoded secret.
	File string `mapstructure:"key-file"`
}

// Suffixes holds the filename suffixes applied on encryption and decryption.
type Suffixes struct {
	// Encrypt is appended to encrypted output files.
	Encrypt string `mapstructure:"encrypt-ext"`

	// Decrypt is appended to decrypted output files after the encrypted
	// suffix has been stripped.
	Decrypt string `mapstructure:"decrypt-ext"`
}

// Config carries all settings of a single invocation.
type Config struct {
	// Key sources for encryption, or single-key decryption.
	Key Key `mapstructure:",squash"`

	// Keyring is a decrypt-side file mapping key ids to secrets.
	Keyring string

	// KeyID is embedded in encrypted stream headers.
	KeyID string `mapstructure:"key-id" validate:"max=255"`

	// Profile selects the content encoding.
	Profile string `validate:"oneof=aes128gcm aes256gcm"`

	// RecordSize is the encrypt-side ciphertext record length. Unused when
	// decrypting, where it stays zero.
	RecordSize uint32 `mapstructure:"rs" validate:"omitempty,min=18"`

	// MaxRecordSize caps the record size accepted when decrypting.
	// Zero means no cap.
	MaxRecordSize uint32 `mapstructure:"max-rs"`

	// Parallel bounds the number of files processed concurrently.
	Parallel int `validate:"min=1"`

	// Quiet suppresses non-error output.
	Quiet bool

	// Delete removes the input file after successful processing.
	Delete bool

	// PreserveTimestamps copies the input modification time to the output.
	PreserveTimestamps bool `mapstructure:"preserve-timestamps"`

	// Stats prints a processing summary.
	Stats bool

	// Show displays the parsed configuration and exits.
	Show bool

	// Decrypt switches from encryption to decryption.
	Decrypt bool

	// Suffixes control output file naming.
	Suffixes Suffixes `mapstructure:",squash"`

	// Files are the positional input paths.
	Files []string `validate:"min=1"`
}

// Display reports whether the parsed configuration should be shown and the
// run stopped.
func (c *Config) Display() bool {
	return c.Show
}

// Validate validates the configuration against the struct tags and the
// cross-field constraints the tags cannot express.
func (c *Config) Validate(_ any) error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	if c.Key.String != "" && c.Key.File != "" {
		return errors.New("--key and --key-file are mutually exclusive")
	}

	if c.Keyring != "" {
		if !c.Decrypt {
			return errors.New("--keyring only applies to decryption")
		}

		if c.Key.String != "" || c.Key.File != "" {
			return errors.New("--keyring and --key/--key-file are mutually exclusive")
		}

		return nil
	}

	if c.Key.String == "" && c.Key.File == "" {
		return errors.New("a key is required: --key, --key-file or --keyring")
	}

	return nil
}
