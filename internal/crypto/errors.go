package crypto

import "errors"

// Errors returned by the package. Compare with errors.Is; most are wrapped
// with a short detail.
var (
	// ErrInvalidArgument is returned for an empty password, empty text or
	// key material of the wrong size. No cryptographic work is attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFormat is returned when the envelope is not valid Base64, is too
	// short to hold its prefix or carries an unusable version header.
	ErrFormat = errors.New("invalid encrypted data")

	// ErrCrypto is returned when decryption fails, which covers both a
	// wrong password and a corrupted ciphertext.
	ErrCrypto = errors.New("decryption failed")

	// ErrDecode is returned when decrypted bytes are not valid UTF-8.
	ErrDecode = errors.New("decrypted data is not valid UTF-8")

	// ErrUnsupportedFormat is returned for an unknown envelope format name.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
