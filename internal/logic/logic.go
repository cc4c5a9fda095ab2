// Package logic implements the top-level run of the encryption and
// decryption commands.
package logic

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/gece/internal/config"
	"github.com/idelchi/gece/internal/processor"
)

// Run is the main logic of the application.
func Run(cfg *config.Config) error {
	start := time.Now()

	proc, err := processor.New(cfg)
	if err != nil {
		return fmt.Errorf("creating processor: %w", err)
	}

	processed, errored, totalSize, err := proc.Run()

	if cfg.Stats {
		printStats(processed, errored, totalSize, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("running logic: %w", err)
	}

	return nil
}

// printStats prints a one-line processing summary.
func printStats(processed, errored int, totalSize int64, elapsed time.Duration) {
	fmt.Printf( //nolint:forbidigo
		"Processed %d file(s), %s written in %s, %d error(s)\n",
		processed,
		humanize.Bytes(uint64(totalSize)), //nolint:gosec // sizes are non-negative
		elapsed.Round(time.Millisecond),
		errored,
	)
}
