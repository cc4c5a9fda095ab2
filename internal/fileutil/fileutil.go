// Package fileutil provides atomic file replacement helpers.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const executableBits = 0o111

// Staged is an in-progress atomic write: output goes to a temporary file in
// the destination directory and only replaces the destination on Commit.
type Staged struct {
	// Source describes the input file the output derives from.
	Source os.FileInfo

	// File is the temporary output file.
	File *os.File

	tmpPath   string
	finalPath string
}

// Stage stats the source file and creates the temporary output file.
// Callers must defer Discard.
func Stage(source, dest string) (*Staged, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("getting file info for %q: %w", source, err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}

	return &Staged{
		Source:    info,
		File:      tmpFile,
		tmpPath:   tmpFile.Name(),
		finalPath: dest,
	}, nil
}

// Discard closes the temporary file and removes it if the write failed.
func (s *Staged) Discard(errp *error) {
	s.File.Close() //nolint:gosec // best-effort cleanup

	if *errp != nil {
		os.Remove(s.tmpPath) //nolint:gosec // best-effort cleanup
	}
}

// Commit closes the temporary file, applies permissions derived from the
// source (owner read/write plus any source execute bits), and renames it
// over the destination.
func (s *Staged) Commit() error {
	perm := os.FileMode(0o600)
	if s.Source.Mode()&executableBits != 0 {
		perm |= executableBits
	}

	if err := os.Chmod(s.tmpPath, perm); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := s.File.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}

	if err := os.Rename(s.tmpPath, s.finalPath); err != nil {
		return fmt.Errorf("renaming output file: %w", err)
	}

	return nil
}

// Finalize optionally copies the source timestamps to the committed output
// and returns its size.
func (s *Staged) Finalize(preserveTimestamps bool) (int64, error) {
	if preserveTimestamps {
		modTime := s.Source.ModTime()

		if err := os.Chtimes(s.finalPath, modTime, modTime); err != nil {
			return 0, fmt.Errorf("preserving timestamps: %w", err)
		}
	}

	info, err := os.Stat(s.finalPath)
	if err != nil {
		return 0, fmt.Errorf("stat output %q: %w", s.finalPath, err)
	}

	return info.Size(), nil
}
