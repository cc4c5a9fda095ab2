package keyring_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/idelchi/gece/internal/keyring"
)

func writeKeyring(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keys")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing keyring: %v", err)
	}

	return path
}

func TestLoadAndLookup(t *testing.T) {
	path := writeKeyring(t, `
# comment
a1 = 04edd954fc549672ce45b546329693d5
  = ffeeddccbbaa99887766554433221100
`)

	ring, err := keyring.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	secret, err := ring.Lookup([]byte("a1"))
	if err != nil {
		t.Fatalf("Lookup(a1): %v", err)
	}

	want := []byte{0x04, 0xed, 0xd9, 0x54, 0xfc, 0x54, 0x96, 0x72, 0xce, 0x45, 0xb5, 0x46, 0x32, 0x96, 0x93, 0xd5}
	if !bytes.Equal(secret, want) {
		t.Fatalf("secret = %x, want %x", secret, want)
	}

	// The empty key id is a legal header value and may carry its own entry.
	if _, err := ring.Lookup(nil); err != nil {
		t.Fatalf("Lookup(empty): %v", err)
	}

	if _, err := ring.Lookup([]byte("unknown")); err == nil {
		t.Fatal("lookup of unknown id succeeded")
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing separator", "a1 04edd954fc549672ce45b546329693d5"},
		{"bad hex", "a1 = nothex"},
		{"duplicate id", "a1 = 00112233445566778899aabbccddeeff\na1 = 00112233445566778899aabbccddeeff"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := keyring.Load(writeKeyring(t, tc.content)); err == nil {
				t.Fatal("malformed keyring accepted")
			}
		})
	}
}

func TestAdd(t *testing.T) {
	var ring keyring.Keyring

	ring.Add("k", []byte{1, 2, 3})

	secret, err := ring.Lookup([]byte("k"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if !bytes.Equal(secret, []byte{1, 2, 3}) {
		t.Fatalf("secret = %v", secret)
	}
}
