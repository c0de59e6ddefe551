package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/model"
)

const doc = "Update `app.py`:\n" +
	"\n" +
	"```python\n" +
	"import httpx\n" +
	"\n" +
	"print(httpx)\n" +
	"```\n" +
	"\n" +
	"Then run `go run main.go`.\n" +
	"\n" +
	"```sh\n" +
	"echo hi\n" +
	"```\n" +
	"\n" +
	"```diff\n" +
	"--- a/lib.py\n" +
	"+++ b/lib.py\n" +
	"@@ -1 +1 @@\n" +
	"-a\n" +
	"+b\n" +
	"```\n" +
	"\n" +
	"## `cfg.py`\n" +
	"\n" +
	"```diff\n" +
	"@@ -1 +1 @@\n" +
	"-x\n" +
	"+y\n" +
	"```\n"

func TestExtractCodeBlocks(t *testing.T) {
	blocks, err := ExtractCodeBlocks([]byte(doc))
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	require.Equal(t, "Update `app.py`:", blocks[0].Hint)
	require.Equal(t, "python", blocks[0].Lang)
	require.Equal(t, "import httpx\n\nprint(httpx)\n", blocks[0].Content)

	require.Equal(t, "sh", blocks[1].Lang)
	require.Equal(t, "diff", blocks[2].Lang)
	require.Equal(t, "`cfg.py`", blocks[3].Hint)
}

func TestParse(t *testing.T) {
	res, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.Equal(t, []FileBlock{{Path: "app.py", Content: "import httpx\n\nprint(httpx)\n"}}, res.Files)
	require.Equal(t, []model.DiffBlock{
		{FilePath: "lib.py", RawContent: "--- a/lib.py\n+++ b/lib.py\n@@ -1 +1 @@\n-a\n+b\n"},
		{FilePath: "cfg.py", RawContent: "@@ -1 +1 @@\n-x\n+y\n"},
	}, res.Diffs)
	require.Equal(t, 1, res.Unresolved)
}

func TestParse_FileBlockWinsOverDiff(t *testing.T) {
	md := "`a.py`\n\n```diff\n@@ -1 +1 @@\n-x\n+y\n```\n\n" +
		"`a.py`\n\n```python\nz\n```\n\n" +
		"`a.py`\n\n```python\nw\n```\n"
	res, err := Parse([]byte(md))
	require.NoError(t, err)
	require.Equal(t, []FileBlock{{Path: "a.py", Content: "w\n"}}, res.Files)
	require.Empty(t, res.Diffs)
}

func TestExtractPathFromHint(t *testing.T) {
	require.Equal(t, "src/x.go", extractPathFromHint("Edit `src/x.go` now"))
	require.Equal(t, "b.py", extractPathFromHint("Run `go test ./...` then fix `b.py`"))
	require.Equal(t, "", extractPathFromHint("plain words"))
}
