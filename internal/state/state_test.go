package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/internal/fs"
)

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.Equal(t, root, FindRoot(sub))

	plain := t.TempDir()
	require.Equal(t, plain, FindRoot(plain))
}

func TestRecordUndoRedo(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	file := filepath.Join(root, "app.py")
	require.NoError(t, os.WriteFile(file, []byte("import httpx\n"), 0o644))

	m, err := New(root)
	require.NoError(t, err)
	require.NoError(t, m.Record("s1", []Change{{
		Path:    file,
		Before:  "import requests\n",
		After:   "import httpx\n",
		Applied: 1,
		Total:   1,
	}}))

	// reload from disk
	m, err = New(root)
	require.NoError(t, err)
	history, idx := m.History()
	require.Len(t, history, 1)
	require.Equal(t, 0, idx)
	require.Equal(t, "s1", history[0].Session)

	r := NewDiskReverter(m, fs.NewDiskHost())

	ops, err := m.GetOperationsToUndo()
	require.NoError(t, err)
	undone, failed := Undo(ctx, r, ops, nil)
	require.Equal(t, []string{file}, undone)
	require.Empty(t, failed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "import requests\n", string(data))

	ops, err = m.GetOperationsToUndo()
	require.NoError(t, err)
	require.Empty(t, ops)

	ops, err = m.GetOperationsToRedo()
	require.NoError(t, err)
	var progress []int
	redone, failed := Redo(ctx, r, ops, func(n int) { progress = append(progress, n) })
	require.Equal(t, []string{file}, redone)
	require.Empty(t, failed)
	require.Equal(t, []int{1}, progress)

	data, err = os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "import httpx\n", string(data))
}

func TestUndo_RefusesModifiedFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	file := filepath.Join(root, "app.py")

	m, err := New(root)
	require.NoError(t, err)
	require.NoError(t, m.Record("s1", []Change{{Path: file, Before: "a\n", After: "b\n"}}))

	// edited by hand after the apply
	require.NoError(t, os.WriteFile(file, []byte("b\nmore\n"), 0o644))

	ops, err := m.GetOperationsToUndo()
	require.NoError(t, err)
	undone, failed := Undo(ctx, NewDiskReverter(m, fs.NewDiskHost()), ops, nil)
	require.Empty(t, undone)
	require.Equal(t, []string{file}, failed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "b\nmore\n", string(data))
}

func TestRecord_TruncatesRedoTail(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Record("s1", []Change{{Path: "/x", Before: "1", After: "2"}}))
	require.NoError(t, m.Record("s2", []Change{{Path: "/x", Before: "2", After: "3"}}))
	_, err = m.GetOperationsToUndo()
	require.NoError(t, err)
	require.NoError(t, m.Record("s3", []Change{{Path: "/x", Before: "2", After: "4"}}))

	history, idx := m.History()
	require.Len(t, history, 2)
	require.Equal(t, 1, idx)
	require.Equal(t, "s3", history[1].Session)

	ops, err := m.GetOperationsToRedo()
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestNew_InvalidHistory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, stateDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("current_index: 5\n"), 0o644))

	_, err := New(root)
	require.Error(t, err)
}
