package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_DisabledByDefault(t *testing.T) {
	logger, err := New(Options{}, t.TempDir())
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestNew_DebugWritesToStateDir(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Options{Debug: true}, dir)
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger.Debug("planned", zap.Int("edits", 2))
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "migmate.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"planned"`)
	require.Contains(t, string(data), `"edits":2`)
}

func TestNew_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := New(Options{File: path}, "")
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zap.DebugLevel))

	logger.Info("hello")
	_ = logger.Sync()
	require.FileExists(t, path)
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	require.Same(t, l, OrNop(l))
}
