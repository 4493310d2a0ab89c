package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexPathFor(t *testing.T) {
	require.Equal(t, "dir/Foo.jaif", IndexPathFor("dir/Foo.class"))
}

func TestExpandClassFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b/B.class", "A.class", "notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	single := filepath.Join(dir, "notes.txt")

	got, err := ExpandClassFiles([]string{dir, single})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "A.class"),
		filepath.Join(dir, "b", "B.class"),
		single,
	}, got)

	_, err = ExpandClassFiles([]string{filepath.Join(dir, "missing")})
	require.Error(t, err)
}
