package planner

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sanadlab/migmate/model"
)

var ErrUnknownHunk = errors.New("unknown hunk id")

// Selection is the set of hunks a caller wants materialized. The zero value selects nothing.
type Selection struct {
	all bool
	ids map[int]struct{}
}

// All selects every hunk of a file.
func All() Selection {
	return Selection{all: true}
}

// IDs selects the hunks with the given ids.
func IDs(ids ...int) Selection {
	s := Selection{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// ParseSelection parses "all" or a comma separated list of hunk ids such as "0,2,3".
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") || s == "*" {
		return All(), nil
	}
	var ids []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil || id < 0 {
			return Selection{}, fmt.Errorf("invalid hunk id %q", field)
		}
		ids = append(ids, id)
	}
	return IDs(ids...), nil
}

// IsAll reports whether s selects every hunk.
func (s Selection) IsAll() bool { return s.all }

// Has reports whether id is selected.
func (s Selection) Has(id int) bool {
	if s.all {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// Add returns a copy of s with ids added.
func (s Selection) Add(ids ...int) Selection {
	if s.all {
		return s
	}
	out := IDs(s.IDs()...)
	for _, id := range ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Remove returns a copy of s without ids. Removing from All expands it over hunks first.
func (s Selection) Remove(hunks []model.Hunk, ids ...int) Selection {
	var keep []int
	if s.all {
		for _, h := range hunks {
			keep = append(keep, h.ID)
		}
	} else {
		keep = s.IDs()
	}
	drop := IDs(ids...)
	out := IDs()
	for _, id := range keep {
		if !drop.Has(id) {
			out.ids[id] = struct{}{}
		}
	}
	return out
}

// IDs returns the selected ids in ascending order. It returns nil for All.
func (s Selection) IDs() []int {
	if s.all {
		return nil
	}
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks that every selected id names one of hunks.
func (s Selection) Validate(hunks []model.Hunk) error {
	if s.all {
		return nil
	}
	known := make(map[int]bool, len(hunks))
	for _, h := range hunks {
		known[h.ID] = true
	}
	for _, id := range s.IDs() {
		if !known[id] {
			return fmt.Errorf("%w: %d", ErrUnknownHunk, id)
		}
	}
	return nil
}

// String renders s in the form ParseSelection accepts.
func (s Selection) String() string {
	if s.all {
		return "all"
	}
	parts := make([]string, 0, len(s.ids))
	for _, id := range s.IDs() {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}
