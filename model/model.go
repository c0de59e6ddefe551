package model

// HunkType is the kind of a diff hunk.
type HunkType string

const (
	HunkAdded   HunkType = "added"
	HunkRemoved HunkType = "removed"
)

// Hunk is one contiguous insert or delete run from a line diff.
type Hunk struct {
	ID                int
	Type              HunkType
	Lines             []string
	OriginalStartLine int
	PairedHunkID      *int
	ContextBefore     []string
	ContextAfter      []string
	// HashKey is a content fingerprint. It may collide; use it only as a tie-breaker.
	HashKey uint64
}

// IsPaired reports whether h forms a replacement with another hunk.
func (h Hunk) IsPaired() bool {
	return h.PairedHunkID != nil
}

// MigrationChange holds the hunks computed for one file.
type MigrationChange struct {
	Identity        string
	OriginalContent string
	UpdatedContent  string
	// EOL is the line ending detected from the updated content.
	EOL   string
	Hunks []Hunk
}

// Hunk returns the hunk with the given id.
func (c *MigrationChange) Hunk(id int) (Hunk, bool) {
	for _, h := range c.Hunks {
		if h.ID == id {
			return h, true
		}
	}
	return Hunk{}, false
}

// ContentPair is a pre/post migration snapshot of one file.
type ContentPair struct {
	Identity string
	Original string
	Updated  string
}

// DiffBlock represents a raw diff block from the source content.
type DiffBlock struct {
	FilePath   string
	RawContent string
}

// Position is a 0-based line/character offset in a document.
type Position struct {
	Line      int
	Character int
}

// Less reports whether p sorts before o.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

// Range is a half-open span of a document.
type Range struct {
	Start Position
	End   Position
}

// IsEmpty reports whether the range covers no text.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Edit replaces Range with Text.
type Edit struct {
	Range Range
	Text  string
}

// Result counts the hunks that verification found realized in a document.
type Result struct {
	Applied int `json:"applied" yaml:"applied"`
	Total   int `json:"total" yaml:"total"`
}

// Summary holds the results of an operation for display.
type Summary struct {
	Modified []string
	Failed   []string
	Skipped  []string
	Results  map[string]Result
	Message  string
}
