package ece

import "errors"

var (
	// ErrInvalidRecordSize is returned when a record size is not strictly
	// larger than the tag length plus the delimiter octet, or exceeds the
	// configured maximum on decryption.
	ErrInvalidRecordSize = errors.New("invalid record size")

	// ErrKeyIDTooLong is returned when a key id does not fit the one-octet
	// length field of the header.
	ErrKeyIDTooLong = errors.New("key id too long")

	// ErrInvalidSalt is returned when an explicit salt is not exactly 16 bytes.
	ErrInvalidSalt = errors.New("invalid salt length")

	// ErrSegmentsExhausted is returned when the nonce counter space of a
	// single stream is used up. The stream must abort; continuing would
	// reuse a nonce.
	ErrSegmentsExhausted = errors.New("maximum number of segments exceeded")

	// ErrInvalidDelimiter is returned when the last non-zero octet of a
	// decrypted record is not a padding delimiter.
	ErrInvalidDelimiter = errors.New("invalid padding delimiter")

	// ErrUnexpectedTerminal is returned when ciphertext continues past a
	// terminal record within the same input chunk.
	ErrUnexpectedTerminal = errors.New("unexpected terminal padding delimiter")

	// ErrUnexpectedNonTerminal is returned when the input ends on a record
	// that does not carry the terminal delimiter.
	ErrUnexpectedNonTerminal = errors.New("unexpected non-terminal padding delimiter")

	// ErrUnexpectedEnd is returned when the input ends mid-header or with a
	// record fragment too short to authenticate.
	ErrUnexpectedEnd = errors.New("unexpected end of data")

	// ErrInvalidState is returned when input arrives after the terminal
	// record has been processed.
	ErrInvalidState = errors.New("invalid state")

	// ErrClosed is returned when writing to an already closed transform.
	ErrClosed = errors.New("stream already closed")
)
