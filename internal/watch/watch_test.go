package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_ReportsWatchedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "app.py")
	other := filepath.Join(dir, "other.py")
	require.NoError(t, os.WriteFile(watched, []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("a\n"), 0o644))

	w, err := New([]string{watched}, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) { changed <- path })
	}()

	require.NoError(t, os.WriteFile(other, []byte("b\n"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("b\n"), 0o644))

	select {
	case path := <-changed:
		require.Equal(t, watched, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := New([]string{path}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), func(string) {}) }()
	require.NoError(t, w.Close())
	require.NoError(t, <-done)
}

func TestNew_MissingDir(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope", "a")}, nil)
	require.Error(t, err)
}
