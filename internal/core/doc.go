// Package core provides the pbetool vault operations on top of a store.
//
// Core operations include:
//   - Seal: encrypt a text and store the envelope under a name
//   - Unseal: decrypt a named envelope using the format it was sealed with
//   - Remove: delete entries and compact the store
//   - ChangePassword: re-encrypt entries under a new password
//   - Diff: compare a sealed plaintext with local content
//
// Passwords are acquired from PBE_PASSWORD or the terminal. Decrypted data
// returned by this package should be cleared by the caller with
// crypto.ClearBytes.
package core
