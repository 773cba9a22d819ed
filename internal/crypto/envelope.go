package crypto

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// VersionPBKDF2 is the leading byte of a pbkdf2v envelope.
	VersionPBKDF2 byte = 0x02

	headerSize = 1 + 4 // version + iterations
)

// Envelope is a decoded prefix || ciphertext pair. Prefix is the IV for
// FormatSHA256 and the salt for the PBKDF2 formats.
type Envelope struct {
	Prefix     []byte
	Ciphertext []byte
}

// Header carries the key-derivation parameters of a pbkdf2v envelope.
type Header struct {
	Version    byte
	Iterations uint32
}

// EncodeEnvelope returns Base64(prefix || ciphertext).
func EncodeEnvelope(prefix, ciphertext []byte) (string, error) {
	if len(prefix) != PrefixSize {
		return "", fmt.Errorf("%w: prefix must be %d bytes, got %d", ErrInvalidArgument, PrefixSize, len(prefix))
	}
	raw := make([]byte, 0, len(prefix)+len(ciphertext))
	raw = append(raw, prefix...)
	raw = append(raw, ciphertext...)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeEnvelope decodes Base64 and splits off the 16-byte prefix.
func DecodeEnvelope(encoded string) (*Envelope, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return splitEnvelope(raw)
}

// EncodeVersioned returns Base64(version || iterations || salt || ciphertext).
func EncodeVersioned(h Header, salt, ciphertext []byte) (string, error) {
	if len(salt) != SaltSize {
		return "", fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidArgument, SaltSize, len(salt))
	}
	if err := h.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	raw := make([]byte, headerSize, headerSize+len(salt)+len(ciphertext))
	raw[0] = h.Version
	binary.BigEndian.PutUint32(raw[1:headerSize], h.Iterations)
	raw = append(raw, salt...)
	raw = append(raw, ciphertext...)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeVersioned parses a pbkdf2v envelope.
func DecodeVersioned(encoded string) (Header, *Envelope, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return Header{}, nil, err
	}
	if len(raw) < headerSize+PrefixSize {
		return Header{}, nil, fmt.Errorf("%w: too short", ErrFormat)
	}

	h := Header{
		Version:    raw[0],
		Iterations: binary.BigEndian.Uint32(raw[1:headerSize]),
	}
	if err := h.validate(); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	env, err := splitEnvelope(raw[headerSize:])
	if err != nil {
		return Header{}, nil, err
	}
	return h, env, nil
}

func (h Header) validate() error {
	if h.Version != VersionPBKDF2 {
		return fmt.Errorf("unknown version 0x%02x", h.Version)
	}
	if h.Iterations < 1 || h.Iterations > MaxIterations {
		return fmt.Errorf("iterations %d out of range", h.Iterations)
	}
	return nil
}

func decodeBase64(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode failed", ErrFormat)
	}
	return raw, nil
}

func splitEnvelope(raw []byte) (*Envelope, error) {
	if len(raw) < PrefixSize {
		return nil, fmt.Errorf("%w: too short", ErrFormat)
	}
	return &Envelope{
		Prefix:     raw[:PrefixSize],
		Ciphertext: raw[PrefixSize:],
	}, nil
}
