package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/internal/differ"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]string{"orig", "upd"}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, SourceDir, cfg.Source)
	require.Equal(t, "orig", cfg.OriginalDir)
	require.Equal(t, "upd", cfg.UpdatedDir)
	require.Equal(t, HostDisk, cfg.Host)
	require.Equal(t, differ.Myers, cfg.Algorithm)
	require.Equal(t, 3, cfg.ContextLines)
	require.True(t, cfg.Watch)
	require.Empty(t, cfg.Selections)
}

func TestParse_Flags(t *testing.T) {
	cfg, err := Parse([]string{
		"--source", "git", "--ref", "migration",
		"--include", "src/{a,b}/**/*.py", "-x", "tests/**",
		"--select", "app.py:0,2", "--select", "app.py:5", "--select", "lib.py",
		"--algorithm", "difflib", "--no-tui", "-n",
	}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, SourceGit, cfg.Source)
	require.Equal(t, "migration", cfg.Ref)
	require.Equal(t, []string{"src/{a,b}/**/*.py"}, cfg.Include)
	require.Equal(t, []string{"tests/**"}, cfg.Exclude)
	require.Equal(t, differ.Difflib, cfg.Algorithm)
	require.True(t, cfg.NoTUI)
	require.True(t, cfg.DryRun)

	require.Len(t, cfg.Selections, 2)
	require.Equal(t, []int{0, 2, 5}, cfg.Selections["app.py"].IDs())
	require.True(t, cfg.Selections["lib.py"].IsAll())
}

func TestParse_EnvAndConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migmate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: markdown\ncontext-lines: 1\nexclude:\n  - vendor/**\n"), 0o644))
	t.Setenv("MIGMATE_HOST", "nvim")

	cfg, err := Parse([]string{"--config", path, "--context-lines", "2"}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, SourceMarkdown, cfg.Source)
	require.Equal(t, HostNvim, cfg.Host)
	require.Equal(t, 2, cfg.ContextLines)
	require.Equal(t, []string{"vendor/**"}, cfg.Exclude)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"undo and redo", []string{"--undo", "--redo"}},
		{"missing dirs", []string{"--source", "dir"}},
		{"unknown source", []string{"--source", "svn"}},
		{"unknown host", []string{"--source", "git", "--host", "emacs"}},
		{"unknown algorithm", []string{"--source", "git", "--algorithm", "patience"}},
		{"bad selection", []string{"--source", "git", "--select", "a.py:x"}},
		{"one positional", []string{"only-one"}},
		{"missing config file", []string{"--source", "git", "--config", "/nonexistent/migmate.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args, io.Discard)
			require.Error(t, err)
		})
	}
}

func TestParse_Help(t *testing.T) {
	_, err := Parse([]string{"--help"}, io.Discard)
	require.True(t, errors.Is(err, pflag.ErrHelp))
}

func TestParseSelections(t *testing.T) {
	sels, err := ParseSelections([]string{"a.py:1", "a.py:all", "b.py:3,4"})
	require.NoError(t, err)
	require.True(t, sels["a.py"].IsAll())
	require.Equal(t, []int{3, 4}, sels["b.py"].IDs())

	_, err = ParseSelections([]string{":1"})
	require.Error(t, err)

	sels, err = ParseSelections(nil)
	require.NoError(t, err)
	require.Nil(t, sels)
}
