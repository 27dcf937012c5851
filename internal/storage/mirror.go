package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var _ Mirror = (*FilesystemMirror)(nil)

// Mirror abstracts the physical file tree that shadows the folder metadata.
// All paths are POSIX-style and relative to the configured store root; no
// business logic lives here.
type Mirror interface {
	// EnsureDir creates the directory (and parents) for the relative path.
	EnsureDir(path string) error
	// WriteFile stores the byte content at the relative path, creating parents.
	WriteFile(path string, content []byte) error
	// RemoveFile deletes the file at the relative path. Missing files are not an error.
	RemoveFile(path string) error
	// RemoveTree deletes the directory subtree at the relative path. Idempotent.
	RemoveTree(path string) error
	// Exists reports whether anything is present at the relative path.
	Exists(path string) bool
	// Absolute resolves a relative path against the store root.
	Absolute(path string) string
}

// FilesystemMirror stores content on the local filesystem under a root directory.
type FilesystemMirror struct {
	root string
}

// NewFilesystemMirror initialises a mirror rooted at dir, creating it if needed.
func NewFilesystemMirror(dir string) (*FilesystemMirror, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("mirror: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mirror: ensure root directory: %w", err)
	}
	return &FilesystemMirror{root: dir}, nil
}

// Root returns the configured root directory.
func (m *FilesystemMirror) Root() string {
	return m.root
}

// EnsureDir creates the directory for the relative path.
func (m *FilesystemMirror) EnsureDir(path string) error {
	if err := os.MkdirAll(m.Absolute(path), 0o755); err != nil {
		return fmt.Errorf("mirror: mkdir %s: %w", path, err)
	}
	return nil
}

// WriteFile stores content at the relative path, creating parent directories.
func (m *FilesystemMirror) WriteFile(path string, content []byte) error {
	full := m.Absolute(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mirror: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("mirror: write %s: %w", path, err)
	}
	return nil
}

// RemoveFile deletes the file at the relative path; a missing file is fine.
func (m *FilesystemMirror) RemoveFile(path string) error {
	if err := os.Remove(m.Absolute(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("mirror: remove %s: %w", path, err)
	}
	return nil
}

// RemoveTree deletes the subtree at the relative path; missing trees are fine.
func (m *FilesystemMirror) RemoveTree(path string) error {
	if err := os.RemoveAll(m.Absolute(path)); err != nil {
		return fmt.Errorf("mirror: remove tree %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the relative path is present.
func (m *FilesystemMirror) Exists(path string) bool {
	_, err := os.Stat(m.Absolute(path))
	return err == nil
}

// Absolute resolves a relative store path to an absolute filesystem path.
func (m *FilesystemMirror) Absolute(path string) string {
	return filepath.Join(m.root, filepath.FromSlash(path))
}
