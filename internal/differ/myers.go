package differ

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// lineInterner maps each distinct line to a unique valid rune so the character diff of diffmatchpatch becomes a line diff.
type lineInterner struct {
	ids  map[string]rune
	next rune
}

func newLineInterner() *lineInterner {
	return &lineInterner{ids: make(map[string]rune), next: 1}
}

// intern returns the runes for lines, or false if the rune space is exhausted.
func (li *lineInterner) intern(lines []string) ([]rune, bool) {
	out := make([]rune, len(lines))
	for i, line := range lines {
		r, ok := li.ids[line]
		if !ok {
			if li.next > utf8.MaxRune {
				return nil, false
			}
			r = li.next
			li.ids[line] = r
			li.next++
			if li.next == surrogateMin {
				li.next = surrogateMax + 1
			}
		}
		out[i] = r
	}
	return out, true
}

func diffMyers(a, b []string) []Run {
	li := newLineInterner()
	ra, okA := li.intern(a)
	rb, okB := li.intern(b)
	if !okA || !okB {
		// More distinct lines than runes; the difflib matcher has no such limit.
		runs, _ := diffDifflib(a, b)
		return runs
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(ra, rb, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	runs := make([]Run, 0, len(diffs))
	i, j := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			runs = append(runs, Run{Op: Equal, Lines: a[i : i+n]})
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			runs = append(runs, Run{Op: Removed, Lines: a[i : i+n]})
			i += n
		case diffmatchpatch.DiffInsert:
			runs = append(runs, Run{Op: Added, Lines: b[j : j+n]})
			j += n
		}
	}
	return runs
}
