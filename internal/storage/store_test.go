package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreTests exercises behavior shared by every Store implementation.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("PutGet", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		entry := &Entry{Name: "greeting", Format: "pbkdf2", Envelope: "AAEC"}
		require.NoError(t, s.Put(ctx, entry))
		assert.False(t, entry.Created.IsZero())
		assert.False(t, entry.Modified.IsZero())

		got, err := s.Get(ctx, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "pbkdf2", got.Format)
		assert.Equal(t, "AAEC", got.Envelope)
	})

	t.Run("ReplaceKeepsCreated", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		first := &Entry{Name: "a", Format: "pbkdf2", Envelope: "one"}
		require.NoError(t, s.Put(ctx, first))
		time.Sleep(5 * time.Millisecond)

		second := &Entry{Name: "a", Format: "sha256", Envelope: "two"}
		require.NoError(t, s.Put(ctx, second))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "two", got.Envelope)
		assert.Equal(t, "sha256", got.Format)
		assert.True(t, got.Created.Equal(first.Created))
		assert.True(t, got.Modified.After(first.Modified))
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(context.Background(), "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, &Entry{Name: "x", Envelope: "e"}))
		require.NoError(t, s.Delete(ctx, "x"))

		_, err := s.Get(ctx, "x")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "x"), ErrNotFound)
	})

	t.Run("ListSorted", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		for _, name := range []string{"charlie", "alpha", "bravo"} {
			require.NoError(t, s.Put(ctx, &Entry{Name: name, Envelope: name}))
		}

		list, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "alpha", list[0].Name)
		assert.Equal(t, "bravo", list[1].Name)
		assert.Equal(t, "charlie", list[2].Name)
	})

	t.Run("InvalidName", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for _, name := range []string{"", "   ", "a\nb", strings.Repeat("x", 256)} {
			err := s.Put(ctx, &Entry{Name: name, Envelope: "e"})
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}
	})

	t.Run("StableID", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		id, err := s.ID(ctx)
		require.NoError(t, err)
		assert.Len(t, id, 32)

		again, err := s.ID(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("ConcurrentPut", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.Put(ctx, &Entry{Name: string(rune('a' + i)), Envelope: "e"})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 16)
	})
}
