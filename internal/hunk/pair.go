package hunk

import (
	"fmt"

	"github.com/sanadlab/migmate/model"
)

// Pair is a removed hunk and the added hunk that replaces it.
type Pair struct {
	Removed model.Hunk
	Added   model.Hunk
}

// FindPaired returns the hunk h forms a replacement with. It returns false for a standalone hunk or when the referenced hunk is missing from all.
func FindPaired(h model.Hunk, all []model.Hunk) (model.Hunk, bool) {
	if h.PairedHunkID == nil {
		return model.Hunk{}, false
	}
	for _, other := range all {
		if other.ID == *h.PairedHunkID {
			return other, true
		}
	}
	return model.Hunk{}, false
}

// Pairs lists every replacement in all, in hunk order.
func Pairs(all []model.Hunk) []Pair {
	var pairs []Pair
	for _, h := range all {
		if h.Type != model.HunkRemoved {
			continue
		}
		if other, ok := FindPaired(h, all); ok {
			pairs = append(pairs, Pair{Removed: h, Added: other})
		}
	}
	return pairs
}

// Validate checks the pairing invariants of all: references are mutual, join a removed with an added hunk at the same start line, and removed hunks are ordered
// by start line.
func Validate(all []model.Hunk) error {
	lastRemoved := -1
	seen := make(map[int]bool, len(all))
	for _, h := range all {
		if seen[h.ID] {
			return fmt.Errorf("hunk %d: duplicate id", h.ID)
		}
		seen[h.ID] = true

		if h.Type == model.HunkRemoved {
			if h.OriginalStartLine < lastRemoved {
				return fmt.Errorf("hunk %d: removed hunks out of order", h.ID)
			}
			lastRemoved = h.OriginalStartLine
		}

		if h.PairedHunkID == nil {
			continue
		}
		other, ok := FindPaired(h, all)
		if !ok {
			return fmt.Errorf("hunk %d: paired hunk %d not found", h.ID, *h.PairedHunkID)
		}
		if other.PairedHunkID == nil || *other.PairedHunkID != h.ID {
			return fmt.Errorf("hunk %d: pairing with %d is not mutual", h.ID, other.ID)
		}
		if other.Type == h.Type {
			return fmt.Errorf("hunk %d: paired with hunk %d of the same type", h.ID, other.ID)
		}
		if other.OriginalStartLine != h.OriginalStartLine {
			return fmt.Errorf("hunk %d: paired hunk %d starts at a different line", h.ID, other.ID)
		}
	}
	return nil
}
