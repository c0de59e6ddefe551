// Package parser pulls whole-file blocks and diff blocks out of markdown text.
package parser

import (
	"regexp"
	"strings"

	"github.com/sanadlab/migmate/internal/patcher"
	"github.com/sanadlab/migmate/model"
)

// FileBlock is the full new content of one file, announced by a `path` hint.
type FileBlock struct {
	Path    string
	Content string
}

// Result holds the blocks found in a document.
type Result struct {
	Files []FileBlock
	Diffs []model.DiffBlock
	// Unresolved counts code blocks that named no file.
	Unresolved int
}

var pathInHintRegex = regexp.MustCompile("`([^`\n]+)`")

// Parse extracts file and diff blocks from markdown. A later block for the same path replaces an earlier one, and a whole-file block wins over a diff.
func Parse(source []byte) (*Result, error) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	files := make(map[string]int)
	diffs := make(map[string]int)
	for _, b := range blocks {
		if isDiff(b) {
			path := patcher.ExtractPathFromDiff(b.Content)
			if path == "" {
				path = extractPathFromHint(b.Hint)
			}
			if path == "" {
				res.Unresolved++
				continue
			}
			diff := model.DiffBlock{FilePath: path, RawContent: b.Content}
			if i, ok := diffs[path]; ok {
				res.Diffs[i] = diff
				continue
			}
			diffs[path] = len(res.Diffs)
			res.Diffs = append(res.Diffs, diff)
			continue
		}

		path := extractPathFromHint(b.Hint)
		if path == "" {
			res.Unresolved++
			continue
		}
		file := FileBlock{Path: path, Content: b.Content}
		if i, ok := files[path]; ok {
			res.Files[i] = file
			continue
		}
		files[path] = len(res.Files)
		res.Files = append(res.Files, file)
	}

	if len(files) > 0 && len(res.Diffs) > 0 {
		kept := res.Diffs[:0]
		for _, d := range res.Diffs {
			if _, ok := files[d.FilePath]; !ok {
				kept = append(kept, d)
			}
		}
		res.Diffs = kept
	}
	return res, nil
}

func isDiff(b CodeBlock) bool {
	return b.Lang == "diff" || b.Lang == "patch"
}

// extractPathFromHint returns the first backticked token of hint without spaces, so `go run main.go` is not taken for a path.
func extractPathFromHint(hint string) string {
	for _, match := range pathInHintRegex.FindAllStringSubmatch(hint, -1) {
		path := strings.TrimSpace(match[1])
		if path != "" && !strings.Contains(path, " ") {
			return path
		}
	}
	return ""
}
