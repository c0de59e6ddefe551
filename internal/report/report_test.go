package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/model"
)

func init() {
	color.NoColor = true
}

func TestFileSink_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	s := NewFileSink(path, "s1")
	require.NoError(t, s.Report("/b.py", model.Result{Applied: 1, Total: 2}))
	require.NoError(t, s.Report("/a.py", model.Result{Applied: 3, Total: 3}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "session: s1\n" +
		"files:\n" +
		"  - file: /a.py\n" +
		"    applied: 3\n" +
		"    total: 3\n" +
		"  - file: /b.py\n" +
		"    applied: 1\n" +
		"    total: 2\n"
	require.Equal(t, want, string(data))
}

func TestFileSink_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	s := NewFileSink(path, "")
	require.NoError(t, s.Report("/a.py", model.Result{Applied: 1, Total: 1}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"files":[{"file":"/a.py","applied":1,"total":1}]}`, string(data))
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(Document{}, "toml")
	require.Error(t, err)
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	file := NewFileSink(filepath.Join(t.TempDir(), "r.yaml"), "")
	s := Multi(NewConsoleSink(ui.NewPrinter(&buf)), file)

	require.NoError(t, s.Report("/a.py", model.Result{Applied: 0, Total: 1}))
	require.Equal(t, "  /a.py: 0/1\n", buf.String())
	require.Len(t, file.entries, 1)
}
