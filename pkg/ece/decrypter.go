package ece

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// KeyLookupFunc resolves the secret keying material for the key id carried
// in a stream header. It receives the raw id bytes, possibly empty, and is
// invoked at most once per stream. It may block.
type KeyLookupFunc func(keyID []byte) ([]byte, error)

// StaticKey returns a lookup that ignores the key id and always yields the
// given secret.
func StaticKey(secret []byte) KeyLookupFunc {
	return func([]byte) ([]byte, error) {
		return secret, nil
	}
}

// DecrypterConfig carries the decryption-side parameters of one stream.
type DecrypterConfig struct {
	// Profile selects the content encoding. Defaults to AES128GCM.
	Profile *Profile

	// MaxRecordSize caps the record size the header may declare. Zero means
	// no cap. Callers decrypting untrusted input should set it, since the
	// declared record size otherwise bounds an attacker-controlled
	// allocation.
	MaxRecordSize uint32
}

// The decrypter runs a state machine over the incoming byte stream. States
// advance strictly forward; any violation is fatal and permanent.
type decryptState int

const (
	stateSalt decryptState = iota
	stateRecordSize
	stateKeyIDLen
	stateKeyID
	statePayload
	stateDone
)

// Decrypter decrypts a record stream produced by Writer, emitting plaintext
// to dst. Input arrives through Write in chunks of any size and alignment;
// Close signals end of input and verifies the stream ended on a terminal
// record.
type Decrypter struct {
	dst     io.Writer
	lookup  KeyLookupFunc
	profile *Profile
	maxSize uint32

	state decryptState

	// scratch accumulates the fixed-size header fields across chunk
	// boundaries; fill tracks how much of the current field is present.
	scratch [SaltSize]byte
	fill    int

	salt       [SaltSize]byte
	recordSize uint32
	keyIDLen   int
	keyID      []byte

	ks     *keySchedule
	record []byte

	closed bool
	err    error
}

// NewDecrypter creates a decrypter writing plaintext to dst, resolving the
// stream secret through lookup once the key id has been parsed.
func NewDecrypter(dst io.Writer, lookup KeyLookupFunc, cfg DecrypterConfig) (*Decrypter, error) {
	if lookup == nil {
		return nil, errors.New("key lookup is required")
	}

	profile := cfg.Profile
	if profile == nil {
		profile = AES128GCM
	}

	return &Decrypter{
		dst:     dst,
		lookup:  lookup,
		profile: profile,
		maxSize: cfg.MaxRecordSize,
	}, nil
}

// Write feeds ciphertext into the state machine. The amount consumed before
// a fatal condition is returned alongside the error; no further input is
// accepted afterwards.
func (d *Decrypter) Write(data []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	if d.closed {
		return 0, ErrClosed
	}

	total := len(data)

	for len(data) > 0 {
		switch d.state {
		case stateSalt:
			n, done := d.accumulate(data, SaltSize)
			data = data[n:]

			if done {
				copy(d.salt[:], d.scratch[:SaltSize])
				d.fill = 0
				d.state = stateRecordSize
			}

		case stateRecordSize:
			n, done := d.accumulate(data, 4)
			data = data[n:]

			if done {
				d.fill = 0

				if err := d.setRecordSize(binary.BigEndian.Uint32(d.scratch[:4])); err != nil {
					return total - len(data), err
				}
			}

		case stateKeyIDLen:
			d.keyIDLen = int(data[0])
			data = data[1:]
			d.keyID = make([]byte, 0, d.keyIDLen)
			d.state = stateKeyID

			if d.keyIDLen == 0 {
				if err := d.beginPayload(); err != nil {
					return total - len(data), err
				}
			}

		case stateKeyID:
			n := d.keyIDLen - len(d.keyID)
			if n > len(data) {
				n = len(data)
			}

			d.keyID = append(d.keyID, data[:n]...)
			data = data[n:]

			if len(d.keyID) == d.keyIDLen {
				if err := d.beginPayload(); err != nil {
					return total - len(data), err
				}
			}

		case statePayload:
			n := int(d.recordSize) - len(d.record)
			if n > len(data) {
				n = len(data)
			}

			d.record = append(d.record, data[:n]...)
			data = data[n:]

			if len(d.record) == int(d.recordSize) {
				final, err := d.openRecord(false)
				if err != nil {
					return total - len(data), err
				}

				if final {
					d.state = stateDone

					if len(data) > 0 {
						return total - len(data), d.fail(ErrUnexpectedTerminal)
					}
				}
			}

		case stateDone:
			return total - len(data), d.fail(ErrInvalidState)
		}
	}

	return total, nil
}

// Close flushes the state machine at end of input. A buffered partial
// record is opened and must carry the terminal delimiter; anything short of
// that is a truncated stream.
func (d *Decrypter) Close() error {
	if d.closed {
		return d.err
	}

	d.closed = true

	if d.err != nil {
		return d.err
	}

	switch d.state {
	case stateDone:
		return nil

	case statePayload:
		if len(d.record) < d.profile.tagSize+1 {
			return d.fail(ErrUnexpectedEnd)
		}

		_, err := d.openRecord(true)

		return err

	default:
		return d.fail(ErrUnexpectedEnd)
	}
}

// accumulate copies input into the scratch buffer until the current header
// field holds need bytes. Returns the amount consumed and whether the field
// is complete.
func (d *Decrypter) accumulate(data []byte, need int) (int, bool) {
	n := need - d.fill
	if n > len(data) {
		n = len(data)
	}

	copy(d.scratch[d.fill:], data[:n])
	d.fill += n

	return n, d.fill == need
}

// setRecordSize validates the declared record size against the profile and
// the configured maximum.
func (d *Decrypter) setRecordSize(recordSize uint32) error {
	if uint64(recordSize) <= uint64(d.profile.tagSize)+1 ||
		(d.maxSize != 0 && recordSize > d.maxSize) {
		return d.fail(fmt.Errorf("%w: %d", ErrInvalidRecordSize, recordSize))
	}

	d.recordSize = recordSize
	d.state = stateKeyIDLen

	return nil
}

// beginPayload resolves the secret for the parsed key id, derives the key
// schedule, and allocates the reusable record buffer. The secret and the
// lookup are dropped immediately afterwards; the lookup is never invoked
// twice.
func (d *Decrypter) beginPayload() error {
	secret, err := d.lookup(d.keyID)
	if err != nil {
		return d.fail(fmt.Errorf("looking up content key: %w", err))
	}

	ks, err := deriveKeySchedule(d.profile, secret, d.salt[:])
	if err != nil {
		return d.fail(err)
	}

	d.ks = ks
	d.lookup = nil
	d.record = make([]byte, 0, int(d.recordSize))
	d.state = statePayload

	return nil
}

// openRecord authenticates and decrypts the buffered record under the next
// nonce, decodes the padding delimiter, and emits the plaintext preceding
// it. atEnd marks the end-of-input flush, where only a terminal delimiter
// is acceptable.
func (d *Decrypter) openRecord(atEnd bool) (final bool, err error) {
	nonce, err := d.ks.nonces.next()
	if err != nil {
		return false, d.fail(err)
	}

	plain, err := d.ks.aead.Open(d.record[:0], nonce, d.record, nil)
	if err != nil {
		return false, d.fail(fmt.Errorf("opening record: %w", err))
	}

	// The delimiter is the last non-zero octet; anything after it is
	// padding.
	i := len(plain) - 1
	for i >= 0 && plain[i] == 0 {
		i--
	}

	if i < 0 {
		zero(plain)

		return false, d.fail(fmt.Errorf("%w: record is all padding", ErrInvalidDelimiter))
	}

	switch plain[i] {
	case delimContinue:
		if atEnd {
			zero(plain)

			return false, d.fail(ErrUnexpectedNonTerminal)
		}

	case delimFinal:
		final = true

	default:
		delimiter := plain[i]
		zero(plain)

		return false, d.fail(fmt.Errorf("%w: 0x%02x", ErrInvalidDelimiter, delimiter))
	}

	if i > 0 {
		if _, err := d.dst.Write(plain[:i]); err != nil {
			zero(plain)

			return false, d.fail(fmt.Errorf("writing plaintext: %w", err))
		}
	}

	zero(plain)
	d.record = d.record[:0]

	return final, nil
}

// fail records the fatal stream error and zeroizes the in-flight record
// buffer. Every later call returns the same error.
func (d *Decrypter) fail(err error) error {
	d.err = err

	zero(d.record)
	d.record = d.record[:0]

	return err
}
