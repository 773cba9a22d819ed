package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"
)

const (
	KeySize           = 32       // AES-256 key size
	BlockSize         = 16       // AES block and IV size
	SaltSize          = 16       // PBKDF2 salt size
	PrefixSize        = 16       // IV or salt in front of the ciphertext
	DefaultIterations = 1000     // PBKDF2 iterations used by the firmware and browser page
	MaxIterations     = 10000000 // Upper bound accepted from a pbkdf2v header
)

// Format names an envelope layout and its key derivation.
type Format string

const (
	// FormatPBKDF2 is the canonical format: salt || ciphertext.
	FormatPBKDF2 Format = "pbkdf2"
	// FormatPBKDF2V is FormatPBKDF2 behind a version and iteration header.
	FormatPBKDF2V Format = "pbkdf2v"
	// FormatSHA256 is iv || ciphertext with an unsalted SHA-256 key.
	//
	// Deprecated: use FormatPBKDF2. Only kept to decrypt existing data.
	FormatSHA256 Format = "sha256"
)

// DefaultFormat is used when no format is configured.
const DefaultFormat = FormatPBKDF2

// Formats lists every supported format, canonical first.
func Formats() []Format {
	return []Format{FormatPBKDF2, FormatPBKDF2V, FormatSHA256}
}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate returns ErrUnsupportedFormat for unknown formats.
func (f Format) Validate() error {
	switch f {
	case FormatPBKDF2, FormatPBKDF2V, FormatSHA256:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// Salted reports whether the format derives key and IV from a salt.
func (f Format) Salted() bool {
	return f == FormatPBKDF2 || f == FormatPBKDF2V
}

func (f Format) String() string {
	return string(f)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	return readRandom(rand.Reader, n)
}

func readRandom(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
