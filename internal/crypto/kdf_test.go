package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeySHA256(t *testing.T) {
	key, err := DeriveKeySHA256([]byte("mypassword"))
	require.NoError(t, err)

	want := sha256.Sum256([]byte("mypassword"))
	assert.Equal(t, want[:], key)
	assert.Len(t, key, KeySize)
}

func TestDeriveKeyIV(t *testing.T) {
	salt := make([]byte, SaltSize)
	for i := range salt {
		salt[i] = byte(i)
	}
	kdf := &KDF{Salt: salt, Iterations: 1000}

	m, err := kdf.DeriveKeyIV([]byte("mypassword"))
	require.NoError(t, err)
	assert.Len(t, m.Key, KeySize)
	assert.Len(t, m.IV, BlockSize)

	again, err := kdf.DeriveKeyIV([]byte("mypassword"))
	require.NoError(t, err)
	assert.Equal(t, m.Key, again.Key, "derivation must be deterministic")
	assert.Equal(t, m.IV, again.IV)

	other := &KDF{Salt: make([]byte, SaltSize), Iterations: 1000}
	diff, err := other.DeriveKeyIV([]byte("mypassword"))
	require.NoError(t, err)
	assert.NotEqual(t, hex.EncodeToString(m.Key), hex.EncodeToString(diff.Key))

	m.Destroy()
	assert.Equal(t, make([]byte, KeySize), m.Key)
	assert.Equal(t, make([]byte, BlockSize), m.IV)
}

func TestDeriveKeyMaterialErrors(t *testing.T) {
	salt := make([]byte, SaltSize)

	tests := []struct {
		name       string
		password   []byte
		salt       []byte
		format     Format
		iterations int
		wantErr    error
	}{
		{"empty password sha256", nil, nil, FormatSHA256, 0, ErrInvalidArgument},
		{"empty password pbkdf2", []byte{}, salt, FormatPBKDF2, 1000, ErrInvalidArgument},
		{"short salt", []byte("pw"), salt[:8], FormatPBKDF2, 1000, ErrInvalidArgument},
		{"zero iterations", []byte("pw"), salt, FormatPBKDF2V, 0, ErrInvalidArgument},
		{"unknown format", []byte("pw"), salt, Format("md5"), 1000, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKeyMaterial(tt.password, tt.salt, tt.format, tt.iterations)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeriveKeyMaterialSHA256HasNoIV(t *testing.T) {
	m, err := DeriveKeyMaterial([]byte("pw"), nil, FormatSHA256, 0)
	require.NoError(t, err)
	assert.Nil(t, m.IV)
	assert.Len(t, m.Key, KeySize)
}
