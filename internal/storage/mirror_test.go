package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFilesystemMirrorRequiresRoot(t *testing.T) {
	_, err := NewFilesystemMirror("  ")
	require.Error(t, err)
}

func TestFilesystemMirrorWriteAndRead(t *testing.T) {
	mirror, err := NewFilesystemMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, mirror.EnsureDir("alice/animals"))
	require.True(t, mirror.Exists("alice/animals"))

	require.NoError(t, mirror.WriteFile("alice/animals/cat.png", []byte("png-bytes")))
	require.True(t, mirror.Exists("alice/animals/cat.png"))

	content, err := os.ReadFile(mirror.Absolute("alice/animals/cat.png"))
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), content)
}

func TestFilesystemMirrorWriteCreatesParents(t *testing.T) {
	mirror, err := NewFilesystemMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, mirror.WriteFile("deep/nested/dir/file.png", []byte("x")))
	require.True(t, mirror.Exists("deep/nested/dir/file.png"))
}

func TestFilesystemMirrorRemoveFileIdempotent(t *testing.T) {
	mirror, err := NewFilesystemMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, mirror.WriteFile("a/b.png", []byte("x")))
	require.NoError(t, mirror.RemoveFile("a/b.png"))
	require.False(t, mirror.Exists("a/b.png"))

	// second removal is not an error
	require.NoError(t, mirror.RemoveFile("a/b.png"))
	require.NoError(t, mirror.RemoveFile("never/existed.png"))
}

func TestFilesystemMirrorRemoveTreeIdempotent(t *testing.T) {
	mirror, err := NewFilesystemMirror(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, mirror.WriteFile("tree/sub/file.png", []byte("x")))
	require.NoError(t, mirror.RemoveTree("tree"))
	require.False(t, mirror.Exists("tree"))
	require.NoError(t, mirror.RemoveTree("tree"))
}

func TestFilesystemMirrorAbsolute(t *testing.T) {
	root := t.TempDir()
	mirror, err := NewFilesystemMirror(root)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(root, "alice", "cat.png"), mirror.Absolute("alice/cat.png"))
}
