package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/pbetool/internal/crypto"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // version, timestamps, store ID - unencrypted
	EntriesBucket = []byte("entries") // JSON-encoded entries
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigStoreID  = []byte("store_id")
)

const (
	FilePermSecure = 0600
	openTimeout    = 2 * time.Second
)

var _ Store = (*BoltStore)(nil)
var _ Compactor = (*BoltStore)(nil)

// BoltStore provides BBolt-based storage for envelopes
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates a store file and makes sure its buckets exist
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, FilePermSecure, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, EntriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// Put stores an entry, keeping the creation time of an existing one
func (s *BoltStore) Put(_ context.Context, entry *Entry) error {
	if err := ValidateName(entry.Name); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries == nil {
			return ErrNotInitialized
		}

		now := time.Now().UTC()
		stored := *entry
		stored.Modified = now
		if prev := entries.Get([]byte(entry.Name)); prev != nil {
			var old Entry
			if err := json.Unmarshal(prev, &old); err == nil {
				stored.Created = old.Created
			}
		}
		if stored.Created.IsZero() {
			stored.Created = now
		}

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if err := entries.Put([]byte(entry.Name), data); err != nil {
			return err
		}
		*entry = stored
		return touch(tx)
	})
}

// Get retrieves an entry by name
func (s *BoltStore) Get(_ context.Context, name string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries == nil {
			return ErrNotInitialized
		}
		data := entries.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes an entry
func (s *BoltStore) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries == nil {
			return ErrNotInitialized
		}
		if entries.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err := entries.Delete([]byte(name)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// List returns all entries in key order
func (s *BoltStore) List(_ context.Context) ([]Entry, error) {
	var list []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries == nil {
			return ErrNotInitialized
		}
		return entries.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt entry %s: %w", k, err)
			}
			list = append(list, entry)
			return nil
		})
	})
	return list, err
}

// GetModified retrieves the last time an entry was written or deleted
func (s *BoltStore) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// ID retrieves the store ID, generating it on first use
func (s *BoltStore) ID(_ context.Context) (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		if data := config.Get(ConfigStoreID); data != nil {
			id = string(data)
			return nil
		}

		generated, err := newStoreID()
		if err != nil {
			return err
		}
		id = generated
		return config.Put(ConfigStoreID, []byte(id))
	})
	return id, err
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

func newStoreID() (string, error) {
	b, err := crypto.GenerateRandom(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate store ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting entries to reclaim disk space.
func (s *BoltStore) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, FilePermSecure, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, FilePermSecure, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
