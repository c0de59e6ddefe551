// Package hunk turns line diffs into addressable hunks.
//
// Build walks the differ's runs once over the original lines. A removed run immediately followed by an added run forms a replacement: both hunks share the removal's
// OriginalStartLine and reference each other through PairedHunkID. FindPaired and Pairs only read those back-references; pairing is never re-derived from positions.
package hunk

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/sanadlab/migmate/internal/differ"
	"github.com/sanadlab/migmate/model"
)

// DefaultContextLines is the number of unchanged lines kept on each side of a hunk.
const DefaultContextLines = 3

var ErrEmptyContent = errors.New("original and updated content are both empty")

// Options controls hunk construction.
type Options struct {
	Algorithm    differ.Algorithm
	ContextLines int
}

func (o Options) contextLines() int {
	if o.ContextLines <= 0 {
		return DefaultContextLines
	}
	return o.ContextLines
}

// Build diffs original and updated and returns the resulting MigrationChange for identity.
func Build(identity, original, updated string, opts Options) (*model.MigrationChange, error) {
	if original == "" && updated == "" {
		return nil, fmt.Errorf("%s: %w", identity, ErrEmptyContent)
	}

	oldLines := differ.SplitLines(original)
	newLines := differ.SplitLines(updated)
	runs, err := differ.Diff(oldLines, newLines, opts.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", identity, err)
	}

	return &model.MigrationChange{
		Identity:        identity,
		OriginalContent: original,
		UpdatedContent:  updated,
		EOL:             detectEOL(updated, original),
		Hunks:           FromRuns(runs, oldLines, opts.contextLines()),
	}, nil
}

// FromRuns converts diff runs into hunks. oldLines must be the original side the runs were computed from.
func FromRuns(runs []differ.Run, oldLines []string, contextLines int) []model.Hunk {
	var hunks []model.Hunk
	cursor := 0
	pending := -1 // index into hunks of a removed hunk not yet followed by an added one

	for _, run := range runs {
		switch run.Op {
		case differ.Equal:
			cursor += len(run.Lines)
			pending = -1

		case differ.Removed:
			h := model.Hunk{
				ID:                len(hunks),
				Type:              model.HunkRemoved,
				Lines:             append([]string(nil), run.Lines...),
				OriginalStartLine: cursor,
			}
			h.ContextBefore, h.ContextAfter = contextAround(oldLines, cursor, cursor+len(run.Lines), contextLines)
			hunks = append(hunks, h)
			pending = len(hunks) - 1
			cursor += len(run.Lines)

		case differ.Added:
			h := model.Hunk{
				ID:                len(hunks),
				Type:              model.HunkAdded,
				Lines:             append([]string(nil), run.Lines...),
				OriginalStartLine: cursor,
			}
			if pending >= 0 {
				removed := &hunks[pending]
				h.OriginalStartLine = removed.OriginalStartLine
				h.ContextBefore, h.ContextAfter = contextAround(oldLines, removed.OriginalStartLine, cursor, contextLines)
				removedID, addedID := removed.ID, h.ID
				removed.PairedHunkID = &addedID
				h.PairedHunkID = &removedID
				pending = -1
			} else {
				h.ContextBefore, h.ContextAfter = contextAround(oldLines, cursor, cursor, contextLines)
			}
			hunks = append(hunks, h)
		}
	}

	for i := range hunks {
		hunks[i].HashKey = HashKey(hunks[i])
	}
	return hunks
}

// contextAround returns up to n original lines before start and after end.
func contextAround(lines []string, start, end, n int) (before, after []string) {
	from := max(0, start-n)
	before = append([]string(nil), lines[from:start]...)
	to := min(len(lines), end+n)
	if end < to {
		after = append([]string(nil), lines[end:to]...)
	}
	return before, after
}

// HashKey fingerprints a hunk with 64-bit FNV-1a over its context and lines. Keys may collide; they disambiguate hunks with otherwise equal positions and never
// identify a hunk on their own.
func HashKey(h model.Hunk) uint64 {
	f := fnv.New64a()
	write := func(section byte, lines []string) {
		_, _ = f.Write([]byte{section})
		for _, l := range lines {
			_, _ = f.Write([]byte(l))
			_, _ = f.Write([]byte{'\n'})
		}
	}
	write('<', h.ContextBefore)
	write(typeTag(h.Type), h.Lines)
	write('>', h.ContextAfter)
	return f.Sum64()
}

func typeTag(t model.HunkType) byte {
	if t == model.HunkAdded {
		return '+'
	}
	return '-'
}

func detectEOL(texts ...string) string {
	for _, t := range texts {
		if eol := differ.DetectEOL(t); eol != "" {
			return eol
		}
	}
	return "\n"
}
