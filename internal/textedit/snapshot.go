// Package textedit holds immutable document snapshots and applies batches of range edits to them.
package textedit

import (
	"errors"
	"strings"

	"github.com/sanadlab/migmate/internal/differ"
)

var (
	ErrOverlap    = errors.New("edits overlap")
	ErrOutOfRange = errors.New("edit range outside document")
	// ErrStale is returned by hosts when a document changed after its snapshot was taken.
	ErrStale = errors.New("document changed since snapshot")
)

// Snapshot is an immutable view of a document. Lines are addressed in their normalized form: a CRLF document has the same line and character positions as its LF
// equivalent.
type Snapshot struct {
	// Version identifies the document state the snapshot was taken from. Hosts compare it on apply to detect concurrent changes.
	Version string

	content    string
	eol        string
	lines      []string
	lineStarts []int
}

// New returns a snapshot of content.
func New(content string) *Snapshot {
	s := &Snapshot{
		content: content,
		eol:     differ.DetectEOL(content),
		lines:   differ.SplitLines(content),
	}
	if s.eol == "" {
		s.eol = "\n"
	}

	s.lineStarts = make([]int, 0, len(s.lines))
	s.lineStarts = append(s.lineStarts, 0)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	return s
}

// NewVersion returns a snapshot of content tagged with version.
func NewVersion(content, version string) *Snapshot {
	s := New(content)
	s.Version = version
	return s
}

// Content returns the raw text, line endings included.
func (s *Snapshot) Content() string { return s.content }

// EOL returns the line ending of the document, "\n" when it has no line break.
func (s *Snapshot) EOL() string { return s.eol }

// LineCount counts lines the way differ.SplitLines does, so a trailing line break adds a final empty line.
func (s *Snapshot) LineCount() int { return len(s.lines) }

// EndsWithEOL reports whether the document ends with a line break.
func (s *Snapshot) EndsWithEOL() bool { return strings.HasSuffix(s.content, "\n") }

// LineLength returns the length in bytes of line, excluding its line ending.
func (s *Snapshot) LineLength(line int) int {
	if line < 0 || line >= len(s.lines) {
		return 0
	}
	return len(s.lines[line])
}

// Line returns the normalized text of line.
func (s *Snapshot) Line(line int) string {
	if line < 0 || line >= len(s.lines) {
		return ""
	}
	return s.lines[line]
}

// Lines returns a copy of the normalized lines.
func (s *Snapshot) Lines() []string {
	return append([]string(nil), s.lines...)
}

// offset converts a position into a byte offset into the raw content.
func (s *Snapshot) offset(line, character int) (int, bool) {
	if line < 0 || line >= len(s.lines) || character < 0 || character > len(s.lines[line]) {
		return 0, false
	}
	return s.lineStarts[line] + character, true
}
