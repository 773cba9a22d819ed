package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/illarion/pbetool/internal/crypto"
	"github.com/illarion/pbetool/internal/storage"
)

var (
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrNoEntries        = errors.New("no entries in store")
)

// Vault seals and unseals named envelopes in a store
type Vault struct {
	store      storage.Store
	format     crypto.Format
	iterations int
}

// NewVault returns a Vault sealing new entries in the given format.
// Iterations apply to both pbkdf2 formats; pbkdf2v entries carry their own.
func NewVault(store storage.Store, format crypto.Format, iterations int) (*Vault, error) {
	// Validates format and iterations once, up front
	if _, err := crypto.New(format, crypto.WithIterations(iterations)); err != nil {
		return nil, err
	}
	return &Vault{store: store, format: format, iterations: iterations}, nil
}

// Format returns the format used for newly sealed entries
func (v *Vault) Format() crypto.Format {
	return v.format
}

func (v *Vault) codec(format crypto.Format) (*crypto.Codec, error) {
	return crypto.New(format, crypto.WithIterations(v.iterations))
}

// Seal encrypts plaintext and stores it under name, replacing any previous entry
func (v *Vault) Seal(ctx context.Context, name string, password, plaintext []byte) (*storage.Entry, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	codec, err := v.codec(v.format)
	if err != nil {
		return nil, err
	}
	envelope, err := codec.Encrypt(password, plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt %s: %w", name, err)
	}

	entry := &storage.Entry{Name: name, Format: v.format.String(), Envelope: envelope}
	if err := v.store.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", name, err)
	}
	return entry, nil
}

// Unseal decrypts the entry stored under name.
// The caller owns the returned slice and should clear it after use.
func (v *Vault) Unseal(ctx context.Context, name string, password []byte) ([]byte, error) {
	entry, err := v.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return v.open(entry, password)
}

func (v *Vault) open(entry *storage.Entry, password []byte) ([]byte, error) {
	format, err := crypto.ParseFormat(entry.Format)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.Name, err)
	}
	codec, err := v.codec(format)
	if err != nil {
		return nil, err
	}

	plaintext, err := codec.Decrypt(password, entry.Envelope)
	if err != nil {
		if errors.Is(err, crypto.ErrCrypto) {
			return nil, fmt.Errorf("%w: cannot decrypt %s: %w", ErrWrongPassword, entry.Name, err)
		}
		return nil, fmt.Errorf("cannot decrypt %s: %w", entry.Name, err)
	}
	return plaintext, nil
}

// List returns all entries sorted by name
func (v *Vault) List(ctx context.Context) ([]storage.Entry, error) {
	entries, err := v.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Remove deletes the named entries, ignoring repeated names. All names are
// checked before any is removed. The store is compacted afterwards when it supports it.
func (v *Vault) Remove(ctx context.Context, names ...string) error {
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, err := v.store.Get(ctx, name); err != nil {
			return err
		}
		unique = append(unique, name)
	}
	names = unique

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	return v.Compact()
}

// Compact reclaims unused space if the store supports it
func (v *Vault) Compact() error {
	if c, ok := v.store.(storage.Compactor); ok {
		return c.Compact()
	}
	return nil
}

// ChangePassword re-encrypts entries under a new password, keeping each
// entry's format. With no names every entry is re-encrypted. All entries are
// decrypted before anything is written, so a wrong password changes nothing.
func (v *Vault) ChangePassword(ctx context.Context, currentPassword, newPassword []byte, names ...string) (int, error) {
	var entries []storage.Entry
	if len(names) == 0 {
		all, err := v.store.List(ctx)
		if err != nil {
			return 0, err
		}
		entries = all
	} else {
		for _, name := range names {
			entry, err := v.store.Get(ctx, name)
			if err != nil {
				return 0, err
			}
			entries = append(entries, *entry)
		}
	}
	if len(entries) == 0 {
		return 0, ErrNoEntries
	}

	plaintexts := make([][]byte, len(entries))
	// Ensure decrypted data is cleared on all exit paths
	defer func() {
		for _, p := range plaintexts {
			crypto.ClearBytes(p)
		}
	}()

	for i := range entries {
		data, err := v.open(&entries[i], currentPassword)
		if err != nil {
			return 0, err
		}
		plaintexts[i] = data
	}

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		format, _ := crypto.ParseFormat(entries[i].Format)
		codec, err := v.codec(format)
		if err != nil {
			return i, err
		}
		envelope, err := codec.Encrypt(newPassword, plaintexts[i])
		if err != nil {
			return i, fmt.Errorf("failed to re-encrypt %s: %w", entries[i].Name, err)
		}

		entries[i].Envelope = envelope
		if err := v.store.Put(ctx, &entries[i]); err != nil {
			return i, fmt.Errorf("failed to store re-encrypted %s: %w", entries[i].Name, err)
		}
	}

	return len(entries), nil
}

// VerifyPassword checks the password against the first entry.
// A store without entries accepts any password.
func (v *Vault) VerifyPassword(ctx context.Context, password []byte) error {
	entries, err := v.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	data, err := v.open(&entries[0], password)
	if err != nil {
		return err
	}
	crypto.ClearBytes(data)
	return nil
}

// Diff returns a unified diff between the sealed plaintext and local content.
// An empty result means no changes.
func (v *Vault) Diff(ctx context.Context, name string, password, local []byte) (string, error) {
	sealed, err := v.Unseal(ctx, name, password)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(sealed)

	return GenerateUnifiedDiff(name, sealed, local)
}

// ID returns the store ID, used as the keyring account
func (v *Vault) ID(ctx context.Context) (string, error) {
	return v.store.ID(ctx)
}

// StatusInfo summarizes a store without decrypting anything
type StatusInfo struct {
	ID       string
	Entries  int
	Formats  map[string]int
	Legacy   []string // names of entries still in the deprecated sha256 format
	Modified time.Time
}

// Status reports entry counts per format and legacy entries
func (v *Vault) Status(ctx context.Context) (*StatusInfo, error) {
	id, err := v.store.ID(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := v.List(ctx)
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{ID: id, Entries: len(entries), Formats: make(map[string]int)}
	for _, e := range entries {
		info.Formats[e.Format]++
		if e.Format == crypto.FormatSHA256.String() {
			info.Legacy = append(info.Legacy, e.Name)
		}
		if e.Modified.After(info.Modified) {
			info.Modified = e.Modified
		}
	}

	// Entry times miss deletions; prefer the store's own record
	if m, ok := v.store.(storage.ModTimer); ok {
		if modified, err := m.GetModified(); err == nil && modified.After(info.Modified) {
			info.Modified = modified
		}
	}
	return info, nil
}
