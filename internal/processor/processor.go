// Package processor drives per-file encryption and decryption over the
// record stream codec.
package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/idelchi/gogen/pkg/key"

	"github.com/idelchi/gece/internal/config"
	"github.com/idelchi/gece/internal/fileutil"
	"github.com/idelchi/gece/internal/keyring"
	"github.com/idelchi/gece/pkg/ece"
)

// Result represents the outcome of processing a single file.
type Result struct {
	// Input file path
	Input string

	// Output file path
	Output string

	// Output file size in bytes
	OutputSize int64

	// Any error that occurred during processing
	Error error
}

// Processor handles the encryption and decryption of files.
type Processor struct {
	// cfg contains runtime configuration options
	cfg *config.Config

	// profile is the selected content encoding
	profile *ece.Profile

	// secret is the raw keying material for encryption or single-key
	// decryption
	secret []byte

	// lookup resolves header key ids to secrets on decryption
	lookup ece.KeyLookupFunc

	// results channels processing outcomes to the printer goroutine
	results chan Result
}

// New creates a Processor from the given configuration, resolving the
// profile and the keying material.
func New(cfg *config.Config) (*Processor, error) {
	profile, err := ece.ParseProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}

	processor := &Processor{
		cfg:     cfg,
		profile: profile,
		results: make(chan Result, len(cfg.Files)),
	}

	switch {
	case cfg.Key.String != "":
		processor.secret, err = key.FromHex(cfg.Key.String)
	case cfg.Key.File != "":
		var raw []byte

		raw, err = os.ReadFile(cfg.Key.File)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}

		processor.secret, err = key.FromHex(strings.TrimSpace(string(raw)))
	}

	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}

	if cfg.Decrypt {
		if cfg.Keyring != "" {
			ring, err := keyring.Load(cfg.Keyring)
			if err != nil {
				return nil, err
			}

			processor.lookup = ring.Lookup
		} else {
			processor.lookup = ece.StaticKey(processor.secret)
		}
	}

	return processor, nil
}

// Run concurrently processes all configured files and reports the number of
// successes and failures and the total output size.
func (p *Processor) Run() (processed, errored int, totalSize int64, err error) {
	group := errgroup.Group{}
	group.SetLimit(p.cfg.Parallel)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for result := range p.results {
			if result.Error != nil {
				errored++

				fmt.Fprintf(os.Stderr, "Error processing %q: %v\n", result.Input, result.Error)

				continue
			}

			processed++
			totalSize += result.OutputSize

			if !p.cfg.Quiet {
				fmt.Printf("Processed %q -> %q\n", result.Input, result.Output) //nolint:forbidigo
			}

			if p.cfg.Delete {
				if err := os.Remove(result.Input); err != nil {
					fmt.Fprintf(os.Stderr, "Error deleting %q: %v\n", result.Input, err)
				} else if !p.cfg.Quiet {
					fmt.Printf("Deleted %q\n", result.Input) //nolint:forbidigo
				}
			}
		}
	}()

	for _, file := range p.cfg.Files {
		group.Go(func() error {
			outPath := p.outputPath(file)

			size, err := p.processFile(file, outPath)
			if err != nil {
				p.results <- Result{Input: file, Error: err}

				return err
			}

			p.results <- Result{Input: file, Output: outPath, OutputSize: size}

			return nil
		})
	}

	err = group.Wait()

	close(p.results)

	<-done // Wait for printer to finish

	if err != nil {
		return processed, errored, totalSize, fmt.Errorf("processing files: %w", err)
	}

	return processed, errored, totalSize, nil
}

// processFile transforms a single file, writing through a temporary file
// that atomically replaces the output on success.
func (p *Processor) processFile(filename, outPath string) (size int64, err error) {
	staged, err := fileutil.Stage(filename, outPath)
	if err != nil {
		return 0, fmt.Errorf("preparing atomic write: %w", err)
	}

	defer staged.Discard(&err)

	inFile, err := os.Open(filepath.Clean(filename))
	if err != nil {
		return 0, fmt.Errorf("opening input file: %w", err)
	}
	defer inFile.Close()

	if p.cfg.Decrypt {
		err = ece.Decrypt(staged.File, inFile, p.lookup, ece.DecrypterConfig{
			Profile:       p.profile,
			MaxRecordSize: p.cfg.MaxRecordSize,
		})
		if err != nil {
			return 0, fmt.Errorf("decrypting file: %w", err)
		}
	} else {
		err = ece.Encrypt(staged.File, inFile, p.secret, ece.Config{
			Profile:    p.profile,
			RecordSize: p.cfg.RecordSize,
			KeyID:      []byte(p.cfg.KeyID),
		})
		if err != nil {
			return 0, fmt.Errorf("encrypting file: %w", err)
		}
	}

	if err := inFile.Close(); err != nil {
		return 0, fmt.Errorf("closing input file: %w", err)
	}

	if err := staged.Commit(); err != nil {
		return 0, err
	}

	size, err = staged.Finalize(p.cfg.PreserveTimestamps)
	if err != nil {
		return 0, fmt.Errorf("finalizing output: %w", err)
	}

	return size, nil
}

// outputPath generates the output file path based on the input filename
// and the configured suffixes for encryption/decryption.
func (p *Processor) outputPath(filename string) string {
	ext := p.cfg.Suffixes.Encrypt

	if p.cfg.Decrypt {
		filename = strings.TrimSuffix(filename, p.cfg.Suffixes.Encrypt)
		ext = p.cfg.Suffixes.Decrypt
	}

	return filepath.Join(filepath.Dir(filename),
		filepath.Base(filename)+ext)
}
