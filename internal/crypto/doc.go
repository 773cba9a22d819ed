// Package crypto provides password-based text encryption for pbetool.
//
// Three envelope formats are supported. All of them use AES-256-CBC with
// PKCS#7 padding and encode the result with standard, padded Base64:
//
//   - pbkdf2 (canonical): salt(16) || ciphertext. Key and IV are the 48
//     bytes of PBKDF2-HMAC-SHA256(password, salt, iterations).
//   - pbkdf2v: 0x02 || iterations(uint32 BE) || salt(16) || ciphertext.
//     Same derivation as pbkdf2 with the iteration count carried in the
//     envelope, so both sides no longer have to agree on a constant.
//   - sha256 (deprecated): iv(16) || ciphertext with key = SHA-256(password).
//     Kept to read envelopes produced by older tools.
//
// The formats are not interchangeable. None of them is authenticated: a
// wrong password or a corrupted envelope usually fails padding validation
// with ErrCrypto, but a successful decryption is not proof of integrity.
//
// Memory safety:
//   - Derived keys and IVs are zeroed before each call returns
//   - Use ClearBytes() to zero passwords held by the caller
package crypto
