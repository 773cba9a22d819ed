package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// KeyMaterial is the output of key derivation. IV is nil for FormatSHA256,
// where the IV is random and travels in the envelope instead.
type KeyMaterial struct {
	Key []byte
	IV  []byte
}

// Destroy clears the key and IV from memory
func (m *KeyMaterial) Destroy() {
	ClearBytes(m.Key)
	ClearBytes(m.IV)
}

// KDF handles salted key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// DeriveKeyIV derives a 32-byte key and a 16-byte IV from a password.
// Both come from one 48-byte PBKDF2-HMAC-SHA256 output, key first.
func (k *KDF) DeriveKeyIV(password []byte) (*KeyMaterial, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if len(k.Salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidArgument, SaltSize, len(k.Salt))
	}
	if k.Iterations < 1 {
		return nil, fmt.Errorf("%w: iterations must be positive", ErrInvalidArgument)
	}

	keyIV := pbkdf2.Key(password, k.Salt, k.Iterations, KeySize+BlockSize, sha256.New)
	m := &KeyMaterial{
		Key: make([]byte, KeySize),
		IV:  make([]byte, BlockSize),
	}
	copy(m.Key, keyIV[:KeySize])
	copy(m.IV, keyIV[KeySize:])
	ClearBytes(keyIV)
	return m, nil
}

// DeriveKeySHA256 derives the unsalted legacy key: SHA-256 of the password.
func DeriveKeySHA256(password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	sum := sha256.Sum256(password)
	key := make([]byte, KeySize)
	copy(key, sum[:])
	ClearBytes(sum[:])
	return key, nil
}

// DeriveKeyMaterial derives the key material for format. The salt and
// iteration count are ignored for FormatSHA256.
func DeriveKeyMaterial(password, salt []byte, format Format, iterations int) (*KeyMaterial, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if !format.Salted() {
		key, err := DeriveKeySHA256(password)
		if err != nil {
			return nil, err
		}
		return &KeyMaterial{Key: key}, nil
	}
	kdf := &KDF{Salt: salt, Iterations: iterations}
	return kdf.DeriveKeyIV(password)
}
