// Package planner turns a selection of hunks into range edits against a live document.
//
// All ranges are computed against the document as it is before any edit is applied, so the host must apply the returned batch atomically against one snapshot.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/model"
)

var ErrOutOfRange = errors.New("hunk outside document")

// Document is the read access the planner needs to the target document. Lines are counted the way differ.SplitLines counts them: a document ending with a line
// break has a final empty line.
type Document interface {
	EOL() string
	LineCount() int
	EndsWithEOL() bool
	LineLength(line int) int
}

// block is one contiguous change: the removed original lines starting at start, replaced by lines.
type block struct {
	start   int
	removed []string
	lines   []string
}

// Plan returns the edits that realize the selected hunks on doc, ordered by position. Both halves of a selected pair become a single replacement; a pair with one
// selected half is planned as that half alone.
func Plan(selected Selection, hunks []model.Hunk, doc Document) ([]model.Edit, error) {
	if err := selected.Validate(hunks); err != nil {
		return nil, err
	}

	ordered := append([]model.Hunk(nil), hunks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.OriginalStartLine != b.OriginalStartLine {
			return a.OriginalStartLine < b.OriginalStartLine
		}
		return a.Type == model.HunkRemoved && b.Type != model.HunkRemoved
	})

	var edits []model.Edit
	done := make(map[int]bool, len(ordered))
	for _, h := range ordered {
		if done[h.ID] || !selected.Has(h.ID) {
			continue
		}
		done[h.ID] = true

		b := block{start: h.OriginalStartLine}
		if other, ok := hunk.FindPaired(h, hunks); ok && selected.Has(other.ID) {
			done[other.ID] = true
			removed, added := h, other
			if h.Type == model.HunkAdded {
				removed, added = other, h
			}
			b.removed = removed.Lines
			b.lines = added.Lines
		} else if h.Type == model.HunkRemoved {
			b.removed = h.Lines
		} else {
			b.lines = h.Lines
		}

		e, err := b.edit(doc)
		if err != nil {
			return nil, fmt.Errorf("hunk %d: %w", h.ID, err)
		}
		edits = append(edits, e)
	}
	return edits, nil
}

// edit converts b into a range edit on doc.
func (b block) edit(doc Document) (model.Edit, error) {
	n := doc.LineCount()
	end := b.start + len(b.removed)
	if b.start < 0 || end > n {
		return model.Edit{}, fmt.Errorf("lines %d-%d of %d: %w", b.start, end, n, ErrOutOfRange)
	}
	// A removal ending in an empty last line deletes the trailing line break, which the document must still have.
	if end == n && len(b.removed) > 0 && b.removed[len(b.removed)-1] == "" && !doc.EndsWithEOL() {
		return model.Edit{}, fmt.Errorf("trailing line break expected: %w", ErrOutOfRange)
	}
	eol := doc.EOL()

	// Mid-file: whole lines, the block keeps one line break before the following line.
	if end < n {
		text := ""
		if len(b.lines) > 0 {
			text = strings.Join(b.lines, eol) + eol
		}
		return lineEdit(b.start, 0, end, 0, text), nil
	}

	last := n - 1
	if b.start == 0 {
		return lineEdit(0, 0, last, doc.LineLength(last), strings.Join(b.lines, eol)), nil
	}

	// The block reaches the end of the document: start after the previous line so the line break before the block moves with it. A single empty added line
	// therefore inserts exactly one line break.
	var sb strings.Builder
	for _, l := range b.lines {
		sb.WriteString(eol)
		sb.WriteString(l)
	}
	prev := b.start - 1
	return lineEdit(prev, doc.LineLength(prev), last, doc.LineLength(last), sb.String()), nil
}

func lineEdit(sl, sc, el, ec int, text string) model.Edit {
	return model.Edit{
		Range: model.Range{
			Start: model.Position{Line: sl, Character: sc},
			End:   model.Position{Line: el, Character: ec},
		},
		Text: text,
	}
}
