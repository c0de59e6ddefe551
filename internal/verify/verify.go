// Package verify estimates which hunks were realized in a document by comparing snapshots taken before and after an apply.
//
// The check is a substring heuristic, not a positional re-diff: an added hunk counts as applied when its lines appear anywhere in the after snapshot, a removed
// hunk when its lines were present before and are gone after. Identical lines elsewhere in the file can therefore over or under count. Results are for reporting
// only and must not gate anything.
//
// Hunks made only of empty lines, such as the removal or addition of a trailing line break, say nothing on their own; they are checked together with the
// nearest context line on each side.
package verify

import (
	"strings"

	"github.com/sanadlab/migmate/internal/differ"
	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/model"
)

// DetectApplied checks every hunk. A pair counts once and is applied only when both halves are.
func DetectApplied(hunks []model.Hunk, before, after string) model.Result {
	return DetectAppliedSelected(hunks, planner.All(), before, after)
}

// DetectAppliedSelected checks the selected hunks only. A pair with a single selected half is checked as that half alone.
func DetectAppliedSelected(hunks []model.Hunk, selected planner.Selection, before, after string) model.Result {
	before = differ.Normalize(before)
	after = differ.Normalize(after)

	var res model.Result
	done := make(map[int]bool, len(hunks))
	for _, h := range hunks {
		if done[h.ID] || !selected.Has(h.ID) {
			continue
		}
		done[h.ID] = true
		res.Total++

		ok := isApplied(h, before, after)
		if other, paired := hunk.FindPaired(h, hunks); paired && selected.Has(other.ID) {
			done[other.ID] = true
			ok = ok && isApplied(other, before, after)
		}
		if ok {
			res.Applied++
		}
	}
	return res
}

func isApplied(h model.Hunk, before, after string) bool {
	text := needle(h)
	switch h.Type {
	case model.HunkAdded:
		return strings.Contains(after, text)
	case model.HunkRemoved:
		return strings.Contains(before, text) && !strings.Contains(after, text)
	default:
		return false
	}
}

// needle is the text whose presence marks h. Blank hunks are anchored on their neighbouring context lines.
func needle(h model.Hunk) string {
	text := strings.Join(h.Lines, "\n")
	if strings.Trim(text, "\n") != "" {
		return text
	}
	if n := len(h.ContextBefore); n > 0 {
		text = h.ContextBefore[n-1] + "\n" + text
	}
	if len(h.ContextAfter) > 0 {
		text += "\n" + h.ContextAfter[0]
	}
	return text
}
