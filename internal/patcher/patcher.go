// Package patcher applies loosely formatted unified diffs, such as those pasted from chat output, whose line numbers cannot be trusted.
package patcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sanadlab/migmate/internal/differ"
	"github.com/sanadlab/migmate/model"
)

var (
	// ErrNoMatch is returned when a hunk's context cannot be found in the source.
	ErrNoMatch = errors.New("could not find matching block for hunk")
	// ErrMismatch is returned when the source diverges from a located hunk while applying it.
	ErrMismatch = errors.New("source does not match hunk")
	// ErrEmptyDiff is returned for a diff block without hunks.
	ErrEmptyDiff = errors.New("diff has no hunks")
)

// filePathRegex extracts the file path from a '+++ b/...' line.
var filePathRegex = regexp.MustCompile(`(?m)^\+\+\+ (?:b/)?(?P<path>\S+)`)

// ExtractPathFromDiff finds the file path in a raw diff string.
func ExtractPathFromDiff(content string) string {
	match := filePathRegex.FindStringSubmatch(content)
	if len(match) > 1 && match[1] != "/dev/null" {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// CorrectDiff relocates every hunk of block against original and returns the diff with accurate headers.
func CorrectDiff(original string, block model.DiffBlock) (string, error) {
	hunks, err := locateHunks(differ.SplitLines(original), block.RawContent)
	if err != nil {
		return "", fmt.Errorf("%s: %w", block.FilePath, err)
	}
	if len(hunks) == 0 {
		return "", fmt.Errorf("%s: %w", block.FilePath, ErrEmptyDiff)
	}
	return formatPatch(block.FilePath, hunks), nil
}

// Patch applies block to original and returns the updated content. The line ending of original is kept.
func Patch(original string, block model.DiffBlock) (string, error) {
	source := differ.SplitLines(original)
	hunks, err := locateHunks(source, block.RawContent)
	if err != nil {
		return "", fmt.Errorf("%s: %w", block.FilePath, err)
	}
	if len(hunks) == 0 {
		return "", fmt.Errorf("%s: %w", block.FilePath, ErrEmptyDiff)
	}

	lines, err := applyHunks(source, hunks)
	if err != nil {
		return "", fmt.Errorf("%s: %w", block.FilePath, err)
	}

	eol := differ.DetectEOL(original)
	if eol == "" {
		eol = "\n"
	}
	return strings.Join(lines, eol), nil
}

// applyHunks rewrites source with located hunks. Blank lines on either side are tolerated the same way matchBlock tolerates them.
func applyHunks(source []string, hunks []patchHunk) ([]string, error) {
	out := make([]string, 0, len(source))
	pos := 0
	for _, h := range hunks {
		start := max(h.oldStart-1, 0)
		if start < pos {
			return nil, fmt.Errorf("%w: hunk at line %d overlaps the previous hunk", ErrMismatch, h.oldStart)
		}
		out = append(out, source[pos:start]...)
		pos = start

		for _, line := range h.lines {
			op, content := line[0], line[1:]
			if op == '+' {
				out = append(out, content)
				continue
			}

			want := normalizeLineForMatching(content)
			if want == "" {
				if pos < len(source) && normalizeLineForMatching(source[pos]) == "" {
					if op == ' ' {
						out = append(out, source[pos])
					}
					pos++
				}
				continue
			}
			for pos < len(source) && normalizeLineForMatching(source[pos]) == "" {
				out = append(out, source[pos])
				pos++
			}
			if pos >= len(source) || normalizeLineForMatching(source[pos]) != want {
				return nil, fmt.Errorf("%w: expected %q near line %d", ErrMismatch, content, pos+1)
			}
			if op == ' ' {
				out = append(out, source[pos])
			}
			pos++
		}
	}
	return append(out, source[pos:]...), nil
}
