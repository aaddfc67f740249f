package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Some Song.mp3")

	require.Equal(t, path, UniquePath(path))

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	first := UniquePath(path)
	require.Equal(t, filepath.Join(dir, "Some Song (1).mp3"), first)

	require.NoError(t, os.WriteFile(first, nil, 0o644))
	require.Equal(t, filepath.Join(dir, "Some Song (2).mp3"), UniquePath(path))
}

func TestBaseTitle(t *testing.T) {
	require.Equal(t, "Some Song", BaseTitle("/tmp/downloads/Some Song.mp3"))
	require.Equal(t, "archive.tar", BaseTitle("archive.tar.gz"))
	require.Equal(t, "noext", BaseTitle("/a/b/noext"))
}
