package nvim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinLines(t *testing.T) {
	tests := []struct {
		name       string
		lines      []string
		fileformat string
		eol        bool
		want       string
	}{
		{"unix with eol", []string{"a", "b"}, "unix", true, "a\nb\n"},
		{"unix without eol", []string{"a", "b"}, "unix", false, "a\nb"},
		{"dos", []string{"a", "b"}, "dos", true, "a\r\nb\r\n"},
		{"empty buffer", []string{""}, "unix", true, ""},
		{"trailing blank line", []string{"a", ""}, "unix", true, "a\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := make([][]byte, len(tt.lines))
			for i, l := range tt.lines {
				lines[i] = []byte(l)
			}
			require.Equal(t, tt.want, joinLines(lines, tt.fileformat, tt.eol))
		})
	}
}

func TestSplitLines_RoundTrip(t *testing.T) {
	for _, text := range []string{"a\nb\n", "a\nb", "a\n\n", "x\r\ny\r\n"} {
		lines, eol := splitLines(text)
		ff := "unix"
		if text == "x\r\ny\r\n" {
			ff = "dos"
		}
		require.Equal(t, text, joinLines(lines, ff, eol), "text %q", text)
	}
}

func TestEscapePath(t *testing.T) {
	require.Equal(t, `/tmp/my\ dir/a\#1\%.py`, escapePath("/tmp/my dir/a#1%.py"))
}
