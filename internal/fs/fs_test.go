package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/internal/textedit"
	"github.com/sanadlab/migmate/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestPathResolver(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(b, "pkg", "x.py"), "x")

	r, err := NewPathResolver([]string{a, b})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(b, "pkg", "x.py"), r.Resolve("pkg/x.py"))
	require.Equal(t, filepath.Join(a, "new.py"), r.Resolve("new.py"))
	require.Equal(t, "", r.ResolveExisting("new.py"))
	require.Equal(t, filepath.Join("pkg", "x.py"), r.Relative(filepath.Join(a, "pkg", "x.py")))
	require.Equal(t, "/elsewhere/y.py", r.Relative("/elsewhere/y.py"))
}

func TestGetFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "hello")

	hash, err := GetFileSHA256(path)
	require.NoError(t, err)
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
	require.Equal(t, hash, HashContent([]byte("hello")))
}

func TestWriteFileAtomic_KeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "old")

	require.NoError(t, WriteFileAtomic(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDiskHost_ApplyAndStale(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "import requests\r\nx = 1\r\n")

	host := NewDiskHost()
	snap, err := host.Open(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "\r\n", snap.EOL())

	replace := []model.Edit{{
		Range: model.Range{End: model.Position{Line: 1}},
		Text:  "import httpx\r\n",
	}}
	require.NoError(t, host.Apply(ctx, path, snap, replace))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "import httpx\r\nx = 1\r\n", string(data))

	// snap no longer matches the file
	err = host.Apply(ctx, path, snap, replace)
	require.ErrorIs(t, err, textedit.ErrStale)
}

func TestDiskHost_Restore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "after\n")

	host := NewDiskHost()
	err := host.Restore(ctx, path, HashContent([]byte("something else")), []byte("before\n"))
	require.ErrorIs(t, err, textedit.ErrStale)

	require.NoError(t, host.Restore(ctx, path, HashContent([]byte("after\n")), []byte("before\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "before\n", string(data))
}
