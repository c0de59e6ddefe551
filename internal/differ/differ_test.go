package differ

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var algorithms = []Algorithm{Myers, Difflib}

// reconstruct rebuilds both sides of a diff from its runs.
func reconstruct(runs []Run) (oldLines, newLines []string) {
	for _, r := range runs {
		switch r.Op {
		case Equal:
			oldLines = append(oldLines, r.Lines...)
			newLines = append(newLines, r.Lines...)
		case Removed:
			oldLines = append(oldLines, r.Lines...)
		case Added:
			newLines = append(newLines, r.Lines...)
		}
	}
	return oldLines, newLines
}

func TestSplitLines(t *testing.T) {
	require.Equal(t, []string{""}, SplitLines(""))
	require.Equal(t, []string{"a", "b", ""}, SplitLines("a\nb\n"))
	require.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb"))
	require.Equal(t, SplitLines("a\nb\n"), SplitLines("a\r\nb\r\n"))
}

func TestDetectEOL(t *testing.T) {
	require.Equal(t, "", DetectEOL("single line"))
	require.Equal(t, "\n", DetectEOL("a\nb"))
	require.Equal(t, "\r\n", DetectEOL("a\r\nb\r\n"))
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, DefaultAlgorithm, alg)

	alg, err = ParseAlgorithm(" DiffLib ")
	require.NoError(t, err)
	require.Equal(t, Difflib, alg)

	_, err = ParseAlgorithm("patience")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = Diff([]string{"a"}, []string{"b"}, Algorithm("patience"))
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestDiff_Cases(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want []Run
	}{
		{
			name: "equal",
			old:  "a\nb\n",
			new:  "a\nb\n",
			want: []Run{{Op: Equal, Lines: []string{"a", "b", ""}}},
		},
		{
			name: "replace first line",
			old:  "import requests\nx = 1",
			new:  "import httpx\nx = 1",
			want: []Run{
				{Op: Removed, Lines: []string{"import requests"}},
				{Op: Added, Lines: []string{"import httpx"}},
				{Op: Equal, Lines: []string{"x = 1"}},
			},
		},
		{
			name: "pure insertion",
			old:  "a\nb",
			new:  "a\nx\nb",
			want: []Run{
				{Op: Equal, Lines: []string{"a"}},
				{Op: Added, Lines: []string{"x"}},
				{Op: Equal, Lines: []string{"b"}},
			},
		},
		{
			name: "pure deletion",
			old:  "a\nb\nc",
			new:  "a\nc",
			want: []Run{
				{Op: Equal, Lines: []string{"a"}},
				{Op: Removed, Lines: []string{"b"}},
				{Op: Equal, Lines: []string{"c"}},
			},
		},
		{
			name: "trailing newline removed",
			old:  "a\nb\n",
			new:  "a\nb",
			want: []Run{
				{Op: Equal, Lines: []string{"a", "b"}},
				{Op: Removed, Lines: []string{""}},
			},
		},
		{
			name: "crlf is not a change",
			old:  "a\r\nb\r\n",
			new:  "a\nb\n",
			want: []Run{{Op: Equal, Lines: []string{"a", "b", ""}}},
		},
	}

	for _, alg := range algorithms {
		for _, tc := range tests {
			t.Run(string(alg)+"/"+tc.name, func(t *testing.T) {
				runs, err := DiffText(tc.old, tc.new, alg)
				require.NoError(t, err)
				require.Equal(t, tc.want, runs)
			})
		}
	}
}

func TestDiff_Reconstructs(t *testing.T) {
	old := strings.Join([]string{"package main", "", "import \"fmt\"", "", "func main() {", "\tfmt.Println(1)", "}", ""}, "\n")
	new := strings.Join([]string{"package main", "", "import (", "\t\"fmt\"", "\t\"os\"", ")", "", "func main() {", "\tfmt.Fprintln(os.Stdout, 1)", "}", ""}, "\n")

	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			runs, err := DiffText(old, new, alg)
			require.NoError(t, err)

			gotOld, gotNew := reconstruct(runs)
			require.Equal(t, SplitLines(old), gotOld)
			require.Equal(t, SplitLines(new), gotNew)

			for i := 1; i < len(runs); i++ {
				require.False(t, runs[i].Op == runs[i-1].Op, "adjacent runs share op %v", runs[i].Op)
				require.False(t, runs[i-1].Op == Added && runs[i].Op == Removed, "added run precedes removed run")
			}
		})
	}
}

func TestCanonicalize_OrdersRemovedBeforeAdded(t *testing.T) {
	runs := canonicalize([]Run{
		{Op: Equal, Lines: []string{"a"}},
		{Op: Added, Lines: []string{"x"}},
		{Op: Removed, Lines: []string{"b"}},
		{Op: Removed, Lines: []string{"c"}},
		{Op: Equal, Lines: nil},
		{Op: Equal, Lines: []string{"d"}},
	})
	require.Equal(t, []Run{
		{Op: Equal, Lines: []string{"a"}},
		{Op: Removed, Lines: []string{"b", "c"}},
		{Op: Added, Lines: []string{"x"}},
		{Op: Equal, Lines: []string{"d"}},
	}, runs)
}

func TestLineInterner_SkipsSurrogates(t *testing.T) {
	li := newLineInterner()
	li.next = surrogateMin - 1
	r, ok := li.intern([]string{"x", "y"})
	require.True(t, ok)
	require.Equal(t, []rune{surrogateMin - 1, surrogateMax + 1}, r)
}
