package ece

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// Profile fixes the AEAD parameters and HKDF info strings of one content
// encoding. Profiles are immutable; use the package-level instances.
type Profile struct {
	// name is the content coding name carried in the Content-Encoding header.
	name string

	// keySize is the content encryption key length in bytes.
	keySize int

	// tagSize is the AEAD authentication tag length in bytes.
	tagSize int

	// nonceSize is the AEAD nonce length in bytes, a positive multiple of 4.
	nonceSize int

	// cekInfo and nonceInfo are the HKDF expand info strings for the content
	// encryption key and the nonce base.
	cekInfo   []byte
	nonceInfo []byte
}

var (
	// AES128GCM is the "aes128gcm" content encoding defined by RFC 8188.
	AES128GCM = &Profile{
		name:      "aes128gcm",
		keySize:   16,
		tagSize:   16,
		nonceSize: 12,
		cekInfo:   []byte("Content-Encoding: aes128gcm\x00"),
		nonceInfo: []byte("Content-Encoding: nonce\x00"),
	}

	// AES256GCM is a 256-bit variant of the RFC 8188 encoding. It is not
	// defined by the RFC and does not interoperate with other aes128gcm
	// implementations; both peers must agree on it out of band.
	AES256GCM = &Profile{
		name:      "aes256gcm",
		keySize:   32,
		tagSize:   16,
		nonceSize: 12,
		cekInfo:   []byte("Content-Encoding: aes256gcm\x00"),
		nonceInfo: []byte("Content-Encoding: nonce\x00"),
	}
)

// ParseProfile resolves a profile from its content coding name.
func ParseProfile(name string) (*Profile, error) {
	switch name {
	case AES128GCM.name:
		return AES128GCM, nil
	case AES256GCM.name:
		return AES256GCM, nil
	default:
		return nil, fmt.Errorf("unknown encoding profile %q", name)
	}
}

// Name returns the content coding name.
func (p *Profile) Name() string { return p.name }

// KeySize returns the content encryption key length in bytes.
func (p *Profile) KeySize() int { return p.keySize }

// TagSize returns the AEAD authentication tag length in bytes.
func (p *Profile) TagSize() int { return p.tagSize }

// NonceSize returns the AEAD nonce length in bytes.
func (p *Profile) NonceSize() int { return p.nonceSize }

// newAEAD constructs the seal/open primitive of the profile over a derived
// content encryption key.
func (p *Profile) newAEAD(cek []byte) (cipher.AEAD, error) {
	switch p.name {
	case AES128GCM.name, AES256GCM.name:
		block, err := aes.NewCipher(cek)
		if err != nil {
			return nil, fmt.Errorf("creating cipher: %w", err)
		}

		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("creating GCM: %w", err)
		}

		return aead, nil
	default:
		return nil, fmt.Errorf("unsupported AEAD %q", p.name)
	}
}
