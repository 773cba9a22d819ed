package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
	"unicode/utf8"
)

// Codec encrypts and decrypts text envelopes in a single format.
// A Codec holds no key material and is safe for concurrent use.
type Codec struct {
	format        Format
	iterations    int
	maxIterations int
	random        io.Reader
}

// Option configures a Codec.
type Option func(*Codec)

// WithIterations sets the PBKDF2 iteration count. pbkdf2v decryption uses
// the count stored in the envelope instead.
func WithIterations(n int) Option {
	return func(c *Codec) {
		c.iterations = n
	}
}

// WithMaxIterations caps the iteration count a pbkdf2v envelope may
// request on decryption. Envelopes above it fail with ErrFormat before any
// key derivation.
func WithMaxIterations(n int) Option {
	return func(c *Codec) {
		c.maxIterations = n
	}
}

// WithRandom replaces crypto/rand as the source of salts and IVs.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// New creates a Codec for format.
func New(format Format, opts ...Option) (*Codec, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		format:        format,
		iterations:    DefaultIterations,
		maxIterations: MaxIterations,
		random:        rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.iterations < 1 || c.iterations > MaxIterations {
		return nil, fmt.Errorf("%w: iterations must be between 1 and %d", ErrInvalidArgument, MaxIterations)
	}
	if c.maxIterations < c.iterations || c.maxIterations > MaxIterations {
		return nil, fmt.Errorf("%w: iteration limit must be between %d and %d", ErrInvalidArgument, c.iterations, MaxIterations)
	}
	return c, nil
}

// Format returns the envelope format of the codec.
func (c *Codec) Format() Format {
	return c.format
}

// Iterations returns the PBKDF2 iteration count used for encryption.
func (c *Codec) Iterations() int {
	return c.iterations
}

// MaxIterations returns the highest iteration count accepted from a
// pbkdf2v envelope.
func (c *Codec) MaxIterations() int {
	return c.maxIterations
}

// Encrypt encrypts plaintext under password and returns a Base64 envelope.
// A fresh random IV or salt is used for every call.
func (c *Codec) Encrypt(password, plaintext []byte) (string, error) {
	if len(password) == 0 {
		return "", fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if len(plaintext) == 0 {
		return "", fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}

	prefix, err := readRandom(c.random, PrefixSize)
	if err != nil {
		return "", err
	}

	var m *KeyMaterial
	if c.format.Salted() {
		m, err = DeriveKeyMaterial(password, prefix, c.format, c.iterations)
	} else {
		m, err = DeriveKeyMaterial(password, nil, c.format, 0)
		if err == nil {
			m.IV = append([]byte(nil), prefix...)
		}
	}
	if err != nil {
		return "", err
	}
	defer m.Destroy()

	ciphertext, err := EncryptCBC(m.Key, m.IV, plaintext)
	if err != nil {
		return "", err
	}

	if c.format == FormatPBKDF2V {
		h := Header{Version: VersionPBKDF2, Iterations: uint32(c.iterations)}
		return EncodeVersioned(h, prefix, ciphertext)
	}
	return EncodeEnvelope(prefix, ciphertext)
}

// Decrypt decrypts a Base64 envelope produced by Encrypt with the same
// format. The returned bytes are not checked for UTF-8.
func (c *Codec) Decrypt(password []byte, encoded string) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: encrypted text is required", ErrInvalidArgument)
	}

	iterations := c.iterations
	var env *Envelope
	var err error
	if c.format == FormatPBKDF2V {
		var h Header
		h, env, err = DecodeVersioned(encoded)
		if err == nil && int(h.Iterations) > c.maxIterations {
			return nil, fmt.Errorf("%w: iterations %d exceed limit %d", ErrFormat, h.Iterations, c.maxIterations)
		}
		iterations = int(h.Iterations)
	} else {
		env, err = DecodeEnvelope(encoded)
	}
	if err != nil {
		return nil, err
	}

	m, err := DeriveKeyMaterial(password, env.Prefix, c.format, iterations)
	if err != nil {
		return nil, err
	}
	defer m.Destroy()
	if !c.format.Salted() {
		m.IV = append([]byte(nil), env.Prefix...)
	}

	return DecryptCBC(m.Key, m.IV, env.Ciphertext)
}

// EncryptString is Encrypt for UTF-8 strings.
func (c *Codec) EncryptString(password, plaintext string) (string, error) {
	return c.Encrypt([]byte(password), []byte(plaintext))
}

// DecryptString is Decrypt returning a string. It fails with ErrDecode
// when the decrypted bytes are not valid UTF-8.
func (c *Codec) DecryptString(password, encoded string) (string, error) {
	plaintext, err := c.Decrypt([]byte(password), encoded)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		ClearBytes(plaintext)
		return "", ErrDecode
	}
	return string(plaintext), nil
}

// EncryptText encrypts text in the canonical pbkdf2 format with the
// default iteration count.
func EncryptText(password, plaintext string) (string, error) {
	c, err := New(DefaultFormat)
	if err != nil {
		return "", err
	}
	return c.EncryptString(password, plaintext)
}

// DecryptText decrypts a canonical pbkdf2 envelope.
func DecryptText(password, encoded string) (string, error) {
	c, err := New(DefaultFormat)
	if err != nil {
		return "", err
	}
	return c.DecryptString(password, encoded)
}

// LegacyEncryptText encrypts text in the unsalted sha256 format.
//
// Deprecated: the key depends on the password only. Use EncryptText.
func LegacyEncryptText(password, plaintext string) (string, error) {
	c, err := New(FormatSHA256)
	if err != nil {
		return "", err
	}
	return c.EncryptString(password, plaintext)
}

// LegacyDecryptText decrypts an envelope in the sha256 format.
//
// Deprecated: only for data written by older tools. Use DecryptText.
func LegacyDecryptText(password, encoded string) (string, error) {
	c, err := New(FormatSHA256)
	if err != nil {
		return "", err
	}
	return c.DecryptString(password, encoded)
}
