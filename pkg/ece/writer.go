package ece

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// SaltSize is the fixed length of the per-stream salt in the header.
	SaltSize = 16

	// MaxKeyIDSize is the largest key id that fits the one-octet length
	// field of the header.
	MaxKeyIDSize = 255

	// DefaultRecordSize is the record size used when none is configured,
	// matching the RFC 8188 examples.
	DefaultRecordSize = 4096
)

// Padding delimiter octets. Every record ends in exactly one of them,
// optionally followed by zero padding.
const (
	delimContinue = 0x01
	delimFinal    = 0x02
)

// Config carries the encryption-side parameters of one stream.
type Config struct {
	// Profile selects the content encoding. Defaults to AES128GCM.
	Profile *Profile

	// RecordSize is the ciphertext record length in bytes. Must be strictly
	// larger than the tag length plus one. Defaults to DefaultRecordSize.
	RecordSize uint32

	// KeyID is embedded in the header so the decrypting party can select
	// the secret. At most MaxKeyIDSize bytes; may be empty.
	KeyID []byte

	// Salt is the 16-byte per-stream salt. When nil a random salt is
	// generated. Reusing a salt with the same secret reuses nonces.
	Salt []byte
}

// Writer encrypts a plaintext stream into a sequence of authenticated
// records behind the self-describing header. The header is emitted on
// construction; Close seals the terminal record and must be called even
// for empty input.
type Writer struct {
	dst io.Writer
	ks  *keySchedule

	// segSize is the plaintext capacity of one record: the record size
	// minus the tag and the delimiter octet.
	segSize int

	// segment accumulates plaintext across Write calls, with one spare
	// slot for the delimiter. record is the seal scratch buffer.
	segment []byte
	record  []byte

	closed bool
	err    error
}

// NewWriter validates the configuration, derives the key schedule from
// secret, and writes the stream header to dst. No output is produced for
// an invalid configuration.
func NewWriter(dst io.Writer, secret []byte, cfg Config) (*Writer, error) {
	profile := cfg.Profile
	if profile == nil {
		profile = AES128GCM
	}

	recordSize := cfg.RecordSize
	if recordSize == 0 {
		recordSize = DefaultRecordSize
	}

	if uint64(recordSize) <= uint64(profile.tagSize)+1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecordSize, recordSize)
	}

	if len(cfg.KeyID) > MaxKeyIDSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrKeyIDTooLong, len(cfg.KeyID))
	}

	salt := cfg.Salt
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}
	} else if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSalt, len(salt))
	}

	ks, err := deriveKeySchedule(profile, secret, salt)
	if err != nil {
		return nil, err
	}

	segSize := int(recordSize) - profile.tagSize - 1

	writer := &Writer{
		dst:     dst,
		ks:      ks,
		segSize: segSize,
		segment: make([]byte, 0, segSize+1),
		record:  make([]byte, 0, int(recordSize)),
	}

	header := make([]byte, 0, SaltSize+5+len(cfg.KeyID))
	header = append(header, salt...)
	header = binary.BigEndian.AppendUint32(header, recordSize)
	header = append(header, byte(len(cfg.KeyID)))
	header = append(header, cfg.KeyID...)

	if _, err := dst.Write(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	return writer, nil
}

// Write buffers plaintext and seals one non-terminal record per filled
// segment. Input chunks need not align to segment boundaries; a single
// chunk may produce multiple records.
func (w *Writer) Write(data []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	if w.closed {
		return 0, ErrClosed
	}

	total := len(data)

	for len(data) > 0 {
		n := w.segSize - len(w.segment)
		if n > len(data) {
			n = len(data)
		}

		w.segment = append(w.segment, data[:n]...)
		data = data[n:]

		if len(w.segment) == w.segSize {
			if err := w.seal(delimContinue); err != nil {
				return total - len(data), err
			}
		}
	}

	return total, nil
}

// Close seals whatever remains buffered, including nothing, as the terminal
// record. A stream therefore always carries at least one record.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}

	w.closed = true

	if w.err != nil {
		return w.err
	}

	return w.seal(delimFinal)
}

// seal appends the delimiter to the buffered segment, encrypts it under the
// next nonce, and writes the record. The segment buffer is zeroized and
// reset afterwards.
func (w *Writer) seal(delimiter byte) error {
	nonce, err := w.ks.nonces.next()
	if err != nil {
		w.err = err

		return err
	}

	w.segment = append(w.segment, delimiter)

	sealed := w.ks.aead.Seal(w.record[:0], nonce, w.segment, nil)

	zero(w.segment)
	w.segment = w.segment[:0]

	if _, err := w.dst.Write(sealed); err != nil {
		w.err = fmt.Errorf("writing record: %w", err)

		return w.err
	}

	return nil
}
