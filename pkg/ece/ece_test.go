package ece_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/idelchi/gece/pkg/ece"
)

func testSalt(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, ece.SaltSize)
}

func testPlaintext(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}

	return data
}

func encrypt(t *testing.T, plaintext, secret []byte, cfg ece.Config) []byte {
	t.Helper()

	var out bytes.Buffer

	if err := ece.Encrypt(&out, bytes.NewReader(plaintext), secret, cfg); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	return out.Bytes()
}

func decrypt(stream, secret []byte, cfg ece.DecrypterConfig) ([]byte, error) {
	var out bytes.Buffer

	err := ece.Decrypt(&out, bytes.NewReader(stream), ece.StaticKey(secret), cfg)

	return out.Bytes(), err
}

func TestRoundTrip(t *testing.T) {
	secret := []byte("shared keying material")

	for _, profile := range []*ece.Profile{ece.AES128GCM, ece.AES256GCM} {
		t.Run(profile.Name(), func(t *testing.T) {
			minRecordSize := uint32(profile.TagSize() + 2)

			// Every record size from the smallest legal one (a single
			// plaintext octet per record) up through 64.
			for recordSize := minRecordSize; recordSize <= 64; recordSize++ {
				for _, plaintextLen := range []int{0, 1, 2, 15, 16, 17, 63, 64, 255} {
					plaintext := testPlaintext(plaintextLen)

					stream := encrypt(t, plaintext, secret, ece.Config{
						Profile:    profile,
						RecordSize: recordSize,
						Salt:       testSalt(9),
					})

					got, err := decrypt(stream, secret, ece.DecrypterConfig{Profile: profile})
					if err != nil {
						t.Fatalf("rs=%d len=%d: decrypt: %v", recordSize, plaintextLen, err)
					}

					if !bytes.Equal(got, plaintext) {
						t.Fatalf("rs=%d len=%d: plaintext mismatch", recordSize, plaintextLen)
					}
				}
			}
		})
	}
}

func TestRoundTripAllLengths(t *testing.T) {
	secret := []byte("shared keying material")

	for _, recordSize := range []uint32{29, ece.DefaultRecordSize} {
		t.Run(fmt.Sprintf("rs_%d", recordSize), func(t *testing.T) {
			for plaintextLen := range 256 {
				plaintext := testPlaintext(plaintextLen)

				stream := encrypt(t, plaintext, secret, ece.Config{
					RecordSize: recordSize,
					Salt:       testSalt(7),
				})

				got, err := decrypt(stream, secret, ece.DecrypterConfig{})
				if err != nil {
					t.Fatalf("len=%d: decrypt: %v", plaintextLen, err)
				}

				if !bytes.Equal(got, plaintext) {
					t.Fatalf("len=%d: plaintext mismatch", plaintextLen)
				}
			}
		})
	}
}

func TestRoundTripKeyIDLengths(t *testing.T) {
	secret := []byte("shared keying material")
	plaintext := []byte("the payload")

	for keyIDLen := 0; keyIDLen <= 240; keyIDLen += 16 {
		keyID := bytes.Repeat([]byte{0xAB}, keyIDLen)

		stream := encrypt(t, plaintext, secret, ece.Config{
			KeyID: keyID,
			Salt:  testSalt(3),
		})

		var out bytes.Buffer

		err := ece.Decrypt(&out, bytes.NewReader(stream), func(id []byte) ([]byte, error) {
			if !bytes.Equal(id, keyID) {
				return nil, fmt.Errorf("lookup saw key id of %d bytes, want %d", len(id), keyIDLen)
			}

			return secret, nil
		}, ece.DecrypterConfig{})
		if err != nil {
			t.Fatalf("keyIDLen=%d: decrypt: %v", keyIDLen, err)
		}

		if !bytes.Equal(out.Bytes(), plaintext) {
			t.Fatalf("keyIDLen=%d: plaintext mismatch", keyIDLen)
		}
	}
}

func TestEmptyPlaintext(t *testing.T) {
	secret := []byte("shared keying material")

	stream := encrypt(t, nil, secret, ece.Config{Salt: testSalt(1)})

	// Header plus exactly one terminal record holding only the delimiter.
	wantLen := ece.SaltSize + 4 + 1 + 1 + ece.AES128GCM.TagSize()
	if len(stream) != wantLen {
		t.Fatalf("stream length = %d, want %d", len(stream), wantLen)
	}

	got, err := decrypt(stream, secret, ece.DecrypterConfig{})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("plaintext length = %d, want 0", len(got))
	}
}

func TestWriterChunkBoundaries(t *testing.T) {
	secret := []byte("shared keying material")
	plaintext := testPlaintext(255)

	var reference bytes.Buffer

	cfg := ece.Config{RecordSize: 36, Salt: testSalt(2)}

	if err := ece.Encrypt(&reference, bytes.NewReader(plaintext), secret, cfg); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// The same plaintext pushed in uneven chunks must produce the same
	// bytes: record boundaries do not depend on write boundaries.
	var chunked bytes.Buffer

	writer, err := ece.NewWriter(&chunked, secret, cfg)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	for step, rest := 1, plaintext; len(rest) > 0; step++ {
		n := step % 7
		if n > len(rest) {
			n = len(rest)
		}

		if _, err := writer.Write(rest[:n]); err != nil {
			t.Fatalf("Write: %v", err)
		}

		rest = rest[n:]
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Equal(chunked.Bytes(), reference.Bytes()) {
		t.Fatal("chunked writes produced a different stream")
	}
}

func TestWriterConfigErrors(t *testing.T) {
	secret := []byte("shared keying material")

	cases := []struct {
		name string
		cfg  ece.Config
		want error
	}{
		{"record size at tag+1", ece.Config{RecordSize: 17}, ece.ErrInvalidRecordSize},
		{"record size below tag", ece.Config{RecordSize: 3}, ece.ErrInvalidRecordSize},
		{"key id over 255 bytes", ece.Config{KeyID: make([]byte, 256)}, ece.ErrKeyIDTooLong},
		{"short salt", ece.Config{Salt: make([]byte, 15)}, ece.ErrInvalidSalt},
		{"long salt", ece.Config{Salt: make([]byte, 17)}, ece.ErrInvalidSalt},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer

			_, err := ece.NewWriter(&out, secret, tc.cfg)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}

			if out.Len() != 0 {
				t.Fatalf("emitted %d bytes for an invalid configuration", out.Len())
			}
		})
	}
}

func TestWriteAfterClose(t *testing.T) {
	secret := []byte("shared keying material")

	var out bytes.Buffer

	writer, err := ece.NewWriter(&out, secret, ece.Config{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := writer.Write([]byte("late")); !errors.Is(err, ece.ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestMaxRecordSizeEnforced(t *testing.T) {
	secret := []byte("shared keying material")

	stream := encrypt(t, testPlaintext(64), secret, ece.Config{
		RecordSize: 4096,
		Salt:       testSalt(6),
	})

	out, err := decrypt(stream, secret, ece.DecrypterConfig{MaxRecordSize: 1024})
	if !errors.Is(err, ece.ErrInvalidRecordSize) {
		t.Fatalf("got %v, want ErrInvalidRecordSize", err)
	}

	if len(out) != 0 {
		t.Fatalf("emitted %d plaintext bytes for an oversized record size", len(out))
	}
}

func TestAppendedBytesFailDecryption(t *testing.T) {
	secret := []byte("shared keying material")

	stream := encrypt(t, testPlaintext(10), secret, ece.Config{Salt: testSalt(5)})

	// The appended bytes land inside what the decrypter takes for the
	// final record, so authentication of that record fails.
	stream = append(stream, 0xFF, 0xFF)

	if _, err := decrypt(stream, secret, ece.DecrypterConfig{}); err == nil {
		t.Fatal("stream with appended bytes decrypted")
	}
}

func TestTruncatedStream(t *testing.T) {
	secret := []byte("shared keying material")

	// Two records: one full non-terminal record and a terminal tail.
	stream := encrypt(t, testPlaintext(30), secret, ece.Config{
		RecordSize: 37, // 20-byte segments
		Salt:       testSalt(4),
	})

	headerLen := ece.SaltSize + 4 + 1

	cases := []struct {
		name string
		cut  int
		want error
	}{
		{"mid header", headerLen - 2, ece.ErrUnexpectedEnd},
		{"after header", headerLen, ece.ErrUnexpectedEnd},
		{"after first record", headerLen + 37, ece.ErrUnexpectedEnd},
		{"tiny record fragment", headerLen + 37 + 5, ece.ErrUnexpectedEnd},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decrypt(stream[:tc.cut], secret, ece.DecrypterConfig{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	// A fragment long enough to attempt authentication fails the tag check.
	t.Run("unauthenticated fragment", func(t *testing.T) {
		_, err := decrypt(stream[:headerLen+37+20], secret, ece.DecrypterConfig{})
		if err == nil {
			t.Fatal("truncated record authenticated")
		}
	})
}

func TestTamperedRecord(t *testing.T) {
	secret := []byte("shared keying material")

	stream := encrypt(t, testPlaintext(40), secret, ece.Config{Salt: testSalt(8)})

	stream[len(stream)-1] ^= 0x80

	out, err := decrypt(stream, secret, ece.DecrypterConfig{})
	if err == nil {
		t.Fatal("tampered record authenticated")
	}

	if len(out) != 0 {
		t.Fatalf("emitted %d plaintext bytes from a tampered record", len(out))
	}
}

func TestLookupFailureAborts(t *testing.T) {
	secret := []byte("shared keying material")

	stream := encrypt(t, testPlaintext(10), secret, ece.Config{Salt: testSalt(5)})

	lookupErr := errors.New("no such key")

	var out bytes.Buffer

	err := ece.Decrypt(&out, bytes.NewReader(stream), func([]byte) ([]byte, error) {
		return nil, lookupErr
	}, ece.DecrypterConfig{})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("got %v, want wrapped lookup error", err)
	}

	if out.Len() != 0 {
		t.Fatalf("emitted %d plaintext bytes after lookup failure", out.Len())
	}
}

func TestProfileMismatchFails(t *testing.T) {
	secret := []byte("shared keying material")

	stream := encrypt(t, testPlaintext(20), secret, ece.Config{
		Profile: ece.AES256GCM,
		Salt:    testSalt(6),
	})

	if _, err := decrypt(stream, secret, ece.DecrypterConfig{Profile: ece.AES128GCM}); err == nil {
		t.Fatal("aes256gcm stream decrypted under the aes128gcm profile")
	}
}

func TestParseProfile(t *testing.T) {
	for _, name := range []string{"aes128gcm", "aes256gcm"} {
		profile, err := ece.ParseProfile(name)
		if err != nil {
			t.Fatalf("ParseProfile(%q): %v", name, err)
		}

		if profile.Name() != name {
			t.Fatalf("ParseProfile(%q).Name() = %q", name, profile.Name())
		}
	}

	if _, err := ece.ParseProfile("aes512gcm"); err == nil {
		t.Fatal("unknown profile accepted")
	}
}
