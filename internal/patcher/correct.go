package patcher

import (
	"fmt"
	"strings"
)

// patchHunk is one hunk of a unified diff after its position was located in the source.
type patchHunk struct {
	// oldStart is the 1-based source line the hunk applies at. Zero means before the first line.
	oldStart int
	lines    []string
}

func (h patchHunk) counts() (oldLines, newLines int) {
	for _, line := range h.lines {
		switch line[0] {
		case '+':
			newLines++
		case '-':
			oldLines++
		default:
			oldLines++
			newLines++
		}
	}
	return oldLines, newLines
}

// getTargetBlock returns the non-blank lines a hunk expects in the source: its context and removed lines.
func getTargetBlock(hunk []string) []string {
	var block []string
	for _, line := range hunk {
		if line[0] != '-' && line[0] != ' ' {
			continue
		}
		if content := line[1:]; strings.TrimSpace(content) != "" {
			block = append(block, content)
		}
	}
	return block
}

// normalizeLineForMatching collapses runs of whitespace and trims the ends.
func normalizeLineForMatching(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchBlock returns the 1-based source line where block starts, comparing whitespace-normalized lines and skipping blank source lines. It searches
// from the 1-based line from onward and returns -1 when there is no match.
func matchBlock(source, block []string, from int) int {
	if len(block) == 0 {
		return -1
	}

	normalizedBlock := make([]string, len(block))
	for i, line := range block {
		normalizedBlock[i] = normalizeLineForMatching(line)
	}

	var filteredSource []string
	var originalLineNumbers []int
	for i := max(from-1, 0); i < len(source); i++ {
		if normalized := normalizeLineForMatching(source[i]); normalized != "" {
			filteredSource = append(filteredSource, normalized)
			originalLineNumbers = append(originalLineNumbers, i+1)
		}
	}

	for i := 0; i <= len(filteredSource)-len(normalizedBlock); i++ {
		match := true
		for j := range normalizedBlock {
			if filteredSource[i+j] != normalizedBlock[j] {
				match = false
				break
			}
		}
		if match {
			return originalLineNumbers[i]
		}
	}
	return -1
}

// splitHunks returns the body lines of each hunk in a raw diff. Headers, file markers and lines without a diff prefix are dropped.
func splitHunks(rawDiff string) [][]string {
	var hunks [][]string
	var current []string

	for _, line := range strings.Split(strings.ReplaceAll(rawDiff, "\r\n", "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			continue
		case strings.HasPrefix(line, "@@"):
			if len(current) > 0 {
				hunks = append(hunks, current)
			}
			current = nil
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, "-"), strings.HasPrefix(line, " "):
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		hunks = append(hunks, current)
	}
	return hunks
}

// locateHunks finds where each hunk of rawDiff applies in source, ignoring the line numbers the diff claims. Hunks must appear in source order.
func locateHunks(source []string, rawDiff string) ([]patchHunk, error) {
	var located []patchHunk
	from := 1
	for i, lines := range splitHunks(rawDiff) {
		target := getTargetBlock(lines)
		if len(target) == 0 {
			// Pure addition without context: only meaningful for an empty source.
			if i > 0 || !isBlank(source) {
				return nil, fmt.Errorf("%w: hunk %d has no context", ErrNoMatch, i+1)
			}
			located = append(located, patchHunk{oldStart: 0, lines: lines})
			continue
		}
		start := matchBlock(source, target, from)
		if start == -1 {
			return nil, fmt.Errorf("%w: hunk %d", ErrNoMatch, i+1)
		}
		located = append(located, patchHunk{oldStart: start, lines: lines})
		from = start + len(target)
	}
	return located, nil
}

// formatPatch renders located hunks as a unified diff with recomputed headers.
func formatPatch(path string, hunks []patchHunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)

	offset := 0
	for _, h := range hunks {
		oldLines, newLines := h.counts()
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.oldStart, oldLines, h.oldStart+offset, newLines)
		for _, line := range h.lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		offset += newLines - oldLines
	}
	return sb.String()
}

func isBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}
