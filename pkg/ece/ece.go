package ece

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

const copyBufferSize = 32 * 1024

// copyBufferPool provides reusable buffers for the stream pump loops.
//
//nolint:gochecknoglobals
var copyBufferPool = sync.Pool{
	New: func() any {
		return make([]byte, copyBufferSize)
	},
}

// Encrypt encrypts src into dst as one encoded stream. It is a convenience
// wrapper around Writer for callers holding an io.Reader.
func Encrypt(dst io.Writer, src io.Reader, secret []byte, cfg Config) error {
	writer, err := NewWriter(dst, secret, cfg)
	if err != nil {
		return err
	}

	if err := pump(writer, src, "plaintext"); err != nil {
		return err
	}

	return writer.Close()
}

// Decrypt decrypts the encoded stream src into dst, resolving the secret
// through lookup. It is a convenience wrapper around Decrypter.
func Decrypt(dst io.Writer, src io.Reader, lookup KeyLookupFunc, cfg DecrypterConfig) error {
	decrypter, err := NewDecrypter(dst, lookup, cfg)
	if err != nil {
		return err
	}

	if err := pump(decrypter, src, "ciphertext"); err != nil {
		return err
	}

	return decrypter.Close()
}

// pump copies src into the transform until EOF using a pooled buffer.
func pump(dst io.Writer, src io.Reader, kind string) error {
	buf, ok := copyBufferPool.Get().([]byte)
	if !ok {
		return errors.New("invalid buffer type from pool") //nolint:err113
	}

	defer copyBufferPool.Put(buf) //nolint:staticcheck

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			return nil
		}

		if readErr != nil {
			return fmt.Errorf("reading %s: %w", kind, readErr)
		}
	}
}
