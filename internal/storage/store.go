package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("entry not found")
	ErrNotInitialized = errors.New("store not initialized")
	ErrInvalidName    = errors.New("invalid entry name")
)

// Entry is a named envelope.
type Entry struct {
	Name     string    `json:"name"`
	Format   string    `json:"format"`
	Envelope string    `json:"envelope"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Store persists entries. Implementations are safe for concurrent use.
type Store interface {
	// Put creates or replaces an entry. Created is preserved on replace.
	Put(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, name string) (*Entry, error)
	Delete(ctx context.Context, name string) error
	// List returns all entries sorted by name.
	List(ctx context.Context) ([]Entry, error)
	// ID returns a stable random identifier, created on first use.
	ID(ctx context.Context) (string, error)
	Close() error
}

// Compactor is implemented by stores that can reclaim unused space.
type Compactor interface {
	Compact() error
}

// ModTimer is implemented by stores that record when they last changed,
// deletions included.
type ModTimer interface {
	GetModified() (time.Time, error)
}

// ValidateName rejects names that cannot be used as keys.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: name longer than 255 bytes", ErrInvalidName)
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
	}
	return nil
}
