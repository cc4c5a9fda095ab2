// Package keyring maps key ids to secret keying material for decryption.
package keyring

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/idelchi/gogen/pkg/key"
)

// Keyring resolves the key id carried in a stream header to the secret it
// was encrypted under.
type Keyring struct {
	secrets map[string][]byte
}

// Load reads a keyring file. Each line holds `id = hex-secret`, where id is
// the literal key id and may be empty; blank lines and `#` comments are
// skipped.
func Load(path string) (*Keyring, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	defer file.Close()

	keyring := &Keyring{secrets: make(map[string][]byte)}

	scanner := bufio.NewScanner(file)

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		id, hexSecret, found := strings.Cut(text, "=")
		if !found {
			return nil, fmt.Errorf("keyring line %d: missing '='", line)
		}

		id = strings.TrimSpace(id)

		secret, err := key.FromHex(strings.TrimSpace(hexSecret))
		if err != nil {
			return nil, fmt.Errorf("keyring line %d: %w", line, err)
		}

		if _, ok := keyring.secrets[id]; ok {
			return nil, fmt.Errorf("keyring line %d: duplicate key id %q", line, id)
		}

		keyring.secrets[id] = secret
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}

	return keyring, nil
}

// Add registers a secret under an id, replacing any previous entry.
func (k *Keyring) Add(id string, secret []byte) {
	if k.secrets == nil {
		k.secrets = make(map[string][]byte)
	}

	k.secrets[id] = secret
}

// Lookup resolves the raw key id bytes from a stream header. It satisfies
// ece.KeyLookupFunc.
func (k *Keyring) Lookup(keyID []byte) ([]byte, error) {
	secret, ok := k.secrets[string(keyID)]
	if !ok {
		return nil, fmt.Errorf("no secret for key id %q", keyID)
	}

	return secret, nil
}
