package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestNormalize(t *testing.T) {
	w := newTestWorkspace(t)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple file", "test.txt", "test.txt", nil},
		{"nested", "a/b/c/test.txt", "a/b/c/test.txt", nil},
		{"hidden file", ".env", ".env", nil},
		{"dot slash", "./test.txt", "test.txt", nil},
		{"redundant slashes", "a//b///test.txt", "a/b/test.txt", nil},
		{"dot segments", "a/./b/../test.txt", "a/test.txt", nil},
		{"absolute inside", filepath.Join(w.Dir(), "inner.txt"), "inner.txt", nil},

		{"empty", "", "", ErrEmptyPath},
		{"parent", "../test.txt", "", ErrPathEscapes},
		{"nested parent", "a/../../test.txt", "", ErrPathEscapes},
		{"absolute outside", "/etc/passwd", "", ErrAbsolutePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Normalize(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	w := newTestWorkspace(t)

	require.NoError(t, w.WriteFile("out/plain.txt", []byte("Hello World"), 0600))
	assert.True(t, w.Exists("out/plain.txt"))

	info, err := os.Stat(filepath.Join(w.Dir(), "out", "plain.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := w.ReadFile("out/plain.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(data))

	_, err = w.ReadFile("missing.txt")
	assert.True(t, os.IsNotExist(err))
	assert.False(t, w.Exists("missing.txt"))
}

func TestReadFileTooLarge(t *testing.T) {
	w := newTestWorkspace(t)

	big := []byte(strings.Repeat("x", MaxFileSize+1))
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "big.txt"), big, 0600))

	_, err := w.ReadFile("big.txt")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestEscapePrevention(t *testing.T) {
	parent := t.TempDir()
	inner := filepath.Join(parent, "inner")
	require.NoError(t, os.Mkdir(inner, 0700))

	w, err := New(inner)
	require.NoError(t, err)
	defer w.Close()

	err = w.WriteFile("../should_not_be_written.txt", []byte("pwned"), 0644)
	assert.ErrorIs(t, err, ErrPathEscapes)
	_, statErr := os.Stat(filepath.Join(parent, "should_not_be_written.txt"))
	assert.True(t, os.IsNotExist(statErr))

	// A symlink pointing outside is refused by os.Root
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("s"), 0600))
	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(inner, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	_, err = w.ReadFile("link.txt")
	assert.Error(t, err)
}
