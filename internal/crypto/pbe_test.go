package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vectorPassword = "mypassword"
	vectorText     = "Hello World"

	// Produced by the legacy command-line tools.
	vectorSHA256 = "FDNGl0K7cGFQQF6AmN/67PWq3Iouxd1bKPrLcmNFyTE="
	// Salt 00..0f, 1000 iterations.
	vectorPBKDF2  = "AAECAwQFBgcICQoLDA0OD788he8QfIN/iOpnlGa3TRc="
	vectorPBKDF2V = "AgAAA+gAAQIDBAUGBwgJCgsMDQ4PvzyF7xB8g3+I6meUZrdNFw=="
)

func sequentialSalt() *bytes.Reader {
	salt := make([]byte, SaltSize)
	for i := range salt {
		salt[i] = byte(i)
	}
	return bytes.NewReader(salt)
}

func mustCodec(t *testing.T, f Format, opts ...Option) *Codec {
	t.Helper()
	c, err := New(f, opts...)
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	texts := []struct {
		name string
		text string
	}{
		{"short", "a"},
		{"hello", vectorText},
		{"block aligned", "0123456789abcdef"},
		{"multi block", strings.Repeat("secret ", 40)},
		{"unicode", "pässwörd 🔐 ключ"},
		{"json", `{"ssid":"home","pass":"hunter2"}`},
	}

	for _, f := range Formats() {
		for _, tt := range texts {
			t.Run(string(f)+"/"+tt.name, func(t *testing.T) {
				c := mustCodec(t, f)
				encoded, err := c.EncryptString("correct horse", tt.text)
				require.NoError(t, err)

				decoded, err := c.DecryptString("correct horse", encoded)
				require.NoError(t, err)
				assert.Equal(t, tt.text, decoded)
			})
		}
	}
}

func TestEncryptIsNotDeterministic(t *testing.T) {
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			c := mustCodec(t, f)
			a, err := c.EncryptString("pw", "same text")
			require.NoError(t, err)
			b, err := c.EncryptString("pw", "same text")
			require.NoError(t, err)

			assert.NotEqual(t, a, b)

			for _, e := range []string{a, b} {
				got, err := c.DecryptString("pw", e)
				require.NoError(t, err)
				assert.Equal(t, "same text", got)
			}
		})
	}
}

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		format  Format
		encoded string
	}{
		{FormatSHA256, vectorSHA256},
		{FormatPBKDF2, vectorPBKDF2},
		{FormatPBKDF2V, vectorPBKDF2V},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := mustCodec(t, tt.format).DecryptString(vectorPassword, tt.encoded)
			require.NoError(t, err)
			assert.Equal(t, vectorText, got)
		})
	}
}

func TestEncryptMatchesVectorWithFixedSalt(t *testing.T) {
	got, err := mustCodec(t, FormatPBKDF2, WithRandom(sequentialSalt())).EncryptString(vectorPassword, vectorText)
	require.NoError(t, err)
	assert.Equal(t, vectorPBKDF2, got)

	got, err = mustCodec(t, FormatPBKDF2V, WithRandom(sequentialSalt())).EncryptString(vectorPassword, vectorText)
	require.NoError(t, err)
	assert.Equal(t, vectorPBKDF2V, got)
}

func TestPackageLevelHelpers(t *testing.T) {
	encoded, err := EncryptText("pw", "payload")
	require.NoError(t, err)
	got, err := DecryptText("pw", encoded)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	got, err = LegacyDecryptText(vectorPassword, vectorSHA256)
	require.NoError(t, err)
	assert.Equal(t, vectorText, got)

	legacy, err := LegacyEncryptText("pw", "payload")
	require.NoError(t, err)
	got, err = LegacyDecryptText("pw", legacy)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
}

// failingReader records whether it was read.
type failingReader struct{ read bool }

func (r *failingReader) Read(p []byte) (int, error) {
	r.read = true
	return 0, errors.New("no entropy")
}

func TestEmptyArgumentsRejected(t *testing.T) {
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			r := &failingReader{}
			c := mustCodec(t, f, WithRandom(r))

			_, err := c.EncryptString("", "text")
			assert.ErrorIs(t, err, ErrInvalidArgument)
			_, err = c.EncryptString("pw", "")
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.False(t, r.read, "random source must not be touched")

			_, err = c.DecryptString("", vectorSHA256)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			_, err = c.DecryptString("pw", "")
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestRandomFailureSurfaces(t *testing.T) {
	c := mustCodec(t, FormatPBKDF2, WithRandom(&failingReader{}))
	_, err := c.EncryptString("pw", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate random bytes")
}

func TestShortInputRejected(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("only15bytes....")[:15])
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			_, err := mustCodec(t, f).DecryptString("pw", short)
			require.ErrorIs(t, err, ErrFormat)
			assert.Contains(t, err.Error(), "invalid encrypted data: too short")
		})
	}
}

func TestInvalidBase64Rejected(t *testing.T) {
	for _, f := range Formats() {
		_, err := mustCodec(t, f).DecryptString("pw", "not base64 at all!")
		assert.ErrorIs(t, err, ErrFormat, string(f))
	}
}

func TestPrefixOnlyEnvelopeFailsDecryption(t *testing.T) {
	prefixOnly := base64.StdEncoding.EncodeToString(make([]byte, PrefixSize))
	_, err := mustCodec(t, FormatPBKDF2).DecryptString("pw", prefixOnly)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestTamperedCiphertextNeverYieldsOriginal(t *testing.T) {
	const text = "attack at dawn, bring snacks"
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			c := mustCodec(t, f)
			encoded, err := c.EncryptString("pw", text)
			require.NoError(t, err)

			raw, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)

			start := PrefixSize
			if f == FormatPBKDF2V {
				start += headerSize
			}
			for i := start; i < len(raw); i++ {
				tampered := append([]byte(nil), raw...)
				tampered[i] ^= 0x01

				got, err := c.Decrypt([]byte("pw"), base64.StdEncoding.EncodeToString(tampered))
				if err != nil {
					assert.True(t, errors.Is(err, ErrCrypto), "byte %d: unexpected error %v", i, err)
					continue
				}
				assert.NotEqual(t, text, string(got), "byte %d: tampering went unnoticed", i)
			}
		})
	}
}

func TestWrongPassword(t *testing.T) {
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			c := mustCodec(t, f)
			encoded, err := c.EncryptString("right", "the secret text")
			require.NoError(t, err)

			got, err := c.DecryptString("wrong", encoded)
			if err == nil {
				assert.NotEqual(t, "the secret text", got)
			}
		})
	}
}

func TestCrossFormatIncompatibility(t *testing.T) {
	const text = "cross format"
	for _, from := range Formats() {
		for _, to := range Formats() {
			if from == to {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				encoded, err := mustCodec(t, from).EncryptString("pw", text)
				require.NoError(t, err)

				got, err := mustCodec(t, to).Decrypt([]byte("pw"), encoded)
				if err == nil {
					assert.NotEqual(t, text, string(got))
				}
			})
		}
	}
}

func TestIterationMismatchDoesNotRecoverPlaintext(t *testing.T) {
	encoded, err := mustCodec(t, FormatPBKDF2, WithIterations(1000)).EncryptString("pw", "text")
	require.NoError(t, err)

	got, err := mustCodec(t, FormatPBKDF2, WithIterations(10000)).Decrypt([]byte("pw"), encoded)
	if err == nil {
		assert.NotEqual(t, "text", string(got))
	}
}

func TestVersionedEnvelopeCarriesIterations(t *testing.T) {
	encoded, err := mustCodec(t, FormatPBKDF2V, WithIterations(2500)).EncryptString("pw", "text")
	require.NoError(t, err)

	h, _, err := DecodeVersioned(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint32(2500), h.Iterations)

	// The decrypting side does not need to know the count.
	got, err := mustCodec(t, FormatPBKDF2V).DecryptString("pw", encoded)
	require.NoError(t, err)
	assert.Equal(t, "text", got)
}

func TestVersionedIterationLimit(t *testing.T) {
	encoded, err := mustCodec(t, FormatPBKDF2V, WithIterations(5000)).EncryptString("pw", "text")
	require.NoError(t, err)

	limited := mustCodec(t, FormatPBKDF2V, WithMaxIterations(2000))
	assert.Equal(t, 2000, limited.MaxIterations())
	_, err = limited.DecryptString("pw", encoded)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "exceed limit")

	got, err := mustCodec(t, FormatPBKDF2V, WithMaxIterations(5000)).DecryptString("pw", encoded)
	require.NoError(t, err)
	assert.Equal(t, "text", got)
}

func TestDecryptStringRejectsInvalidUTF8(t *testing.T) {
	c := mustCodec(t, FormatPBKDF2)
	encoded, err := c.Encrypt([]byte("pw"), []byte{0xff, 0xfe, 0xfd})
	require.NoError(t, err)

	raw, err := c.Decrypt([]byte("pw"), encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe, 0xfd}, raw)

	_, err = c.DecryptString("pw", encoded)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Format("rot13"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(FormatPBKDF2, WithIterations(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(FormatPBKDF2, WithIterations(MaxIterations+1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(FormatPBKDF2V, WithIterations(5000), WithMaxIterations(1000))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(FormatPBKDF2V, WithMaxIterations(MaxIterations+1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PBKDF2 ")
	require.NoError(t, err)
	assert.Equal(t, FormatPBKDF2, f)

	_, err = ParseFormat("aes")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConcurrentUse(t *testing.T) {
	c := mustCodec(t, FormatPBKDF2)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			password := strings.Repeat("p", i+1)
			encoded, err := c.EncryptString(password, "concurrent")
			if err != nil {
				errs <- err
				return
			}
			got, err := c.DecryptString(password, encoded)
			if err != nil {
				errs <- err
				return
			}
			if got != "concurrent" {
				errs <- errors.New("round trip mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
