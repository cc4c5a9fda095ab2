package ece

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keySchedule holds the per-stream AEAD primitive and its nonce sequence.
// A schedule is single use: one stream, one schedule, never shared.
type keySchedule struct {
	aead   cipher.AEAD
	nonces nonceSequence
}

// deriveKeySchedule derives the content encryption key and nonce base from
// the input keying material and salt via HKDF-SHA256, per RFC 8188 section 2.
func deriveKeySchedule(profile *Profile, secret, salt []byte) (*keySchedule, error) {
	prk := hkdf.Extract(sha256.New, secret, salt)

	cek := make([]byte, profile.keySize)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, profile.cekInfo), cek); err != nil {
		return nil, fmt.Errorf("deriving content encryption key: %w", err)
	}

	base := make([]byte, profile.nonceSize)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, profile.nonceInfo), base); err != nil {
		return nil, fmt.Errorf("deriving nonce base: %w", err)
	}

	aead, err := profile.newAEAD(cek)

	zero(cek)
	zero(prk)

	if err != nil {
		return nil, err
	}

	return &keySchedule{
		aead: aead,
		nonces: nonceSequence{
			base:    base,
			counter: make([]uint32, profile.nonceSize/4),
		},
	}, nil
}

// nonceSequence yields the per-record nonces of one stream: the fixed base
// XORed with a strictly increasing counter. The sequence is infinite up to
// counter exhaustion and cannot be restarted or rewound.
type nonceSequence struct {
	base []byte

	// counter is the record counter as 32-bit words, least-significant word
	// first. Rendered big-endian with the most-significant word leading.
	counter []uint32

	exhausted bool
}

// next returns the nonce for the current counter value and increments the
// counter. Once every word has wrapped the sequence is exhausted and all
// further calls fail with ErrSegmentsExhausted.
func (s *nonceSequence) next() ([]byte, error) {
	if s.exhausted {
		return nil, ErrSegmentsExhausted
	}

	last := len(s.counter) - 1

	nonce := make([]byte, len(s.base))
	for i, word := range s.counter {
		binary.BigEndian.PutUint32(nonce[(last-i)*4:], word)
	}

	for i := range nonce {
		nonce[i] ^= s.base[i]
	}

	for i := 0; ; i++ {
		if i > last {
			s.exhausted = true

			break
		}

		s.counter[i]++

		if s.counter[i] != 0 {
			break
		}
	}

	return nonce, nil
}

// zero overwrites b with zeroes. Best effort only: the runtime and the
// garbage collector may retain other copies.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
