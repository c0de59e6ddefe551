package textedit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sanadlab/migmate/model"
)

type resolvedEdit struct {
	start, end int
	text       string
	index      int
}

// Apply applies edits to content as one batch. See Snapshot.Apply.
func Apply(content string, edits []model.Edit) (string, error) {
	return New(content).Apply(edits)
}

// Apply applies all edits against s and returns the resulting text. Every range refers to s, never to the output of an earlier edit in the batch. Inserts at the
// same offset keep their batch order and come before a replacement starting there. Overlapping or out-of-range edits fail the whole batch.
func (s *Snapshot) Apply(edits []model.Edit) (string, error) {
	resolved := make([]resolvedEdit, 0, len(edits))
	for i, e := range edits {
		start, ok := s.offset(e.Range.Start.Line, e.Range.Start.Character)
		if !ok {
			return "", fmt.Errorf("edit %d: start %d:%d: %w", i, e.Range.Start.Line, e.Range.Start.Character, ErrOutOfRange)
		}
		end, ok := s.offset(e.Range.End.Line, e.Range.End.Character)
		if !ok {
			return "", fmt.Errorf("edit %d: end %d:%d: %w", i, e.Range.End.Line, e.Range.End.Character, ErrOutOfRange)
		}
		if end < start {
			return "", fmt.Errorf("edit %d: end before start: %w", i, ErrOutOfRange)
		}
		resolved = append(resolved, resolvedEdit{start: start, end: end, text: e.Text, index: i})
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		a, b := resolved[i], resolved[j]
		if a.start != b.start {
			return a.start < b.start
		}
		return a.start == a.end && b.start != b.end
	})

	for i := 1; i < len(resolved); i++ {
		prev, cur := resolved[i-1], resolved[i]
		if cur.start < prev.end {
			return "", fmt.Errorf("edits %d and %d: %w", prev.index, cur.index, ErrOverlap)
		}
	}

	var b strings.Builder
	b.Grow(len(s.content))
	last := 0
	for _, e := range resolved {
		b.WriteString(s.content[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(s.content[last:])
	return b.String(), nil
}
