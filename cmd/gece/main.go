// Command gece encrypts and decrypts files as encrypted content encoding
// (RFC 8188) streams.
package main

import (
	"os"

	"github.com/idelchi/gece/internal/commands"
	"github.com/idelchi/gece/internal/config"
)

// version is set at build time.
var version = "dev"

func main() {
	cfg := &config.Config{}

	if err := commands.NewRootCommand(cfg, version).Execute(); err != nil {
		os.Exit(1)
	}
}
