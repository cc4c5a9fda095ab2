// Package ece implements the encrypted content encoding for HTTP (RFC 8188),
// a streaming envelope encryption of arbitrary-length byte streams into
// self-describing sequences of independently authenticated records.
// Features push-style transforms with bounded memory, per-stream HKDF key
// derivation, and key selection on decryption through an embedded key id.
package ece
