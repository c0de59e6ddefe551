package patcher

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/sanadlab/migmate/internal/differ"
)

// UnifiedDiff renders the difference between original and updated as a unified diff. Line endings are ignored. It returns "" when the two are equal.
func UnifiedDiff(fromFile, toFile, original, updated string, context int) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(original),
		B:        diffLines(updated),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  context,
		Eol:      "\n",
	})
}

// diffLines splits text into LF-terminated lines without the virtual line after a trailing break.
func diffLines(text string) []string {
	lines := differ.SplitLines(text)
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
