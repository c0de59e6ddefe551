package source

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sanadlab/migmate/internal/fs"
	"github.com/sanadlab/migmate/internal/parser"
	"github.com/sanadlab/migmate/internal/patcher"
	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/model"
)

// MarkdownSource takes updated content from fenced code blocks: whole files announced by a `path` hint, and diff blocks patched onto the file
// on disk. Paths resolve through Resolver and must name existing files.
type MarkdownSource struct {
	// Input is read instead of stdin or the clipboard when set.
	Input    io.Reader
	Resolver *fs.PathResolver
	Filter   Filter
}

func (s *MarkdownSource) Load(ctx context.Context) ([]model.ContentPair, error) {
	if err := s.Filter.Validate(); err != nil {
		return nil, err
	}
	content, err := ReadInput(s.Input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Input is empty. Nothing to process.")
		return nil, nil
	}

	res, err := parser.Parse([]byte(content))
	if err != nil {
		return nil, err
	}
	if res.Unresolved > 0 {
		ui.Warning("Ignored %d code block(s) without a file path.", res.Unresolved)
	}

	var pairs []model.ContentPair
	for _, f := range res.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		identity, original, ok := s.original(f.Path)
		if !ok {
			continue
		}
		pairs = append(pairs, model.ContentPair{Identity: identity, Original: original, Updated: f.Content})
	}
	for _, d := range res.Diffs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		identity, original, ok := s.original(d.FilePath)
		if !ok {
			continue
		}
		updated, err := patcher.Patch(original, d)
		if err != nil {
			ui.Warning("Skipping diff for %s: %v", d.FilePath, err)
			continue
		}
		pairs = append(pairs, model.ContentPair{Identity: identity, Original: original, Updated: updated})
	}
	return pairs, nil
}

func (s *MarkdownSource) original(path string) (identity, content string, ok bool) {
	if !s.Filter.Match(path) {
		return "", "", false
	}
	identity = s.Resolver.ResolveExisting(path)
	if identity == "" {
		ui.Warning("Skipping %s: file does not exist", path)
		return "", "", false
	}
	data, err := os.ReadFile(identity)
	if err != nil {
		ui.Warning("Skipping %s: %v", path, err)
		return "", "", false
	}
	return identity, string(data), true
}
