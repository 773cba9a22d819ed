// Package security confines file reads and writes to a working directory.
package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrTooLarge     = errors.New("file too large")
)

// MaxFileSize bounds files read as plaintext input.
const MaxFileSize = 16 << 20

// Workspace reads and writes files below a root directory using os.Root,
// so symlinks and ".." cannot reach outside of it.
type Workspace struct {
	root *os.Root
	dir  string
}

// New opens a Workspace rooted at dir.
func New(dir string) (*Workspace, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open working directory: %w", err)
	}

	return &Workspace{root: root, dir: absPath}, nil
}

// Dir returns the absolute root directory.
func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) Close() error {
	if w.root != nil {
		return w.root.Close()
	}
	return nil
}

// Normalize validates a user-provided path and returns it cleaned, relative
// to the root, with forward slashes.
func (w *Workspace) Normalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if filepath.IsAbs(userPath) {
		rel, err := filepath.Rel(w.dir, userPath)
		if err != nil || !filepath.IsLocal(rel) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		userPath = rel
	}
	if !filepath.IsLocal(userPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}
	return filepath.ToSlash(filepath.Clean(userPath)), nil
}

// ReadFile reads a file below the root, refusing files over MaxFileSize.
func (w *Workspace) ReadFile(path string) ([]byte, error) {
	rel, err := w.Normalize(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := w.root.Open(filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, rel, MaxFileSize)
	}
	return data, nil
}

// WriteFile writes a file below the root, creating parent directories.
func (w *Workspace) WriteFile(path string, data []byte, perm os.FileMode) error {
	rel, err := w.Normalize(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	platformPath := filepath.FromSlash(rel)

	if dir := filepath.Dir(platformPath); dir != "." {
		if err := w.root.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return w.root.WriteFile(platformPath, data, perm)
}

// Exists reports whether path exists below the root.
func (w *Workspace) Exists(path string) bool {
	rel, err := w.Normalize(path)
	if err != nil {
		return false
	}
	_, err = w.root.Stat(filepath.FromSlash(rel))
	return err == nil
}
