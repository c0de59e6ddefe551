package patcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanadlab/migmate/model"
)

const appPy = "import requests\n" +
	"\n" +
	"def fetch(url):\n" +
	"    return requests.get(url).json()\n"

// Line numbers in the header are deliberately wrong.
const appDiff = "--- a/app.py\n" +
	"+++ b/app.py\n" +
	"@@ -10,4 +10,4 @@\n" +
	"-import requests\n" +
	"+import httpx\n" +
	" \n" +
	" def fetch(url):\n" +
	"-    return requests.get(url).json()\n" +
	"+    return httpx.get(url).json()\n"

func TestExtractPathFromDiff(t *testing.T) {
	require.Equal(t, "app.py", ExtractPathFromDiff(appDiff))
	require.Equal(t, "pkg/x.go", ExtractPathFromDiff("--- pkg/x.go\n+++ pkg/x.go\n"))
	require.Equal(t, "", ExtractPathFromDiff("+++ /dev/null\n"))
	require.Equal(t, "", ExtractPathFromDiff("no diff here"))
}

func TestPatch(t *testing.T) {
	got, err := Patch(appPy, model.DiffBlock{FilePath: "app.py", RawContent: appDiff})
	require.NoError(t, err)
	require.Equal(t, "import httpx\n\ndef fetch(url):\n    return httpx.get(url).json()\n", got)
}

func TestPatch_ToleratesWhitespaceDrift(t *testing.T) {
	diff := "@@ -1 +1 @@\n" +
		"-import   requests\n" +
		"+import httpx\n"
	got, err := Patch("x = 1\r\nimport requests\r\n", model.DiffBlock{FilePath: "a.py", RawContent: diff})
	require.NoError(t, err)
	require.Equal(t, "x = 1\r\nimport httpx\r\n", got)
}

func TestPatch_MultipleHunks(t *testing.T) {
	original := "a\nb\nc\nd\ne\nf\ng\n"
	diff := "@@ -1,2 +1,2 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		"@@ -5,2 +5,3 @@\n" +
		" f\n" +
		"+F\n" +
		" g\n"
	got, err := Patch(original, model.DiffBlock{FilePath: "x", RawContent: diff})
	require.NoError(t, err)
	require.Equal(t, "a\nB\nc\nd\ne\nf\nF\ng\n", got)
}

func TestPatch_EmptySource(t *testing.T) {
	got, err := Patch("", model.DiffBlock{FilePath: "new.py", RawContent: "@@ -0,0 +1,2 @@\n+x\n+y\n"})
	require.NoError(t, err)
	require.Equal(t, "x\ny\n", got)
}

func TestPatch_Errors(t *testing.T) {
	_, err := Patch(appPy, model.DiffBlock{FilePath: "app.py", RawContent: "@@ -1 +1 @@\n-import urllib\n+import httpx\n"})
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = Patch(appPy, model.DiffBlock{FilePath: "app.py", RawContent: "just text"})
	require.ErrorIs(t, err, ErrEmptyDiff)

	_, err = Patch(appPy, model.DiffBlock{FilePath: "app.py", RawContent: "@@ -1 +1 @@\n+import httpx\n"})
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestCorrectDiff(t *testing.T) {
	got, err := CorrectDiff(appPy, model.DiffBlock{FilePath: "app.py", RawContent: appDiff})
	require.NoError(t, err)
	want := "--- a/app.py\n" +
		"+++ b/app.py\n" +
		"@@ -1,4 +1,4 @@\n" +
		"-import requests\n" +
		"+import httpx\n" +
		" \n" +
		" def fetch(url):\n" +
		"-    return requests.get(url).json()\n" +
		"+    return httpx.get(url).json()\n"
	require.Equal(t, want, got)
}

func TestUnifiedDiff(t *testing.T) {
	got, err := UnifiedDiff("a/x", "b/x", "a\nb\n", "a\r\nc\r\n", 3)
	require.NoError(t, err)
	require.Equal(t, "--- a/x\n+++ b/x\n@@ -1,2 +1,2 @@\n a\n-b\n+c\n", got)

	got, err = UnifiedDiff("a/x", "b/x", "same\n", "same\n", 3)
	require.NoError(t, err)
	require.Empty(t, got)
}
