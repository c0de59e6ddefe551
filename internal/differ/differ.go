// Package differ computes line-level diffs between two texts.
//
// Lines are opaque tokens: there is no intra-line diffing, so the runs returned by Diff map directly onto line ranges of the original document. Text is normalized
// (CRLF to LF) before splitting so that line-ending differences never show up as content changes.
package differ

import (
	"errors"
	"fmt"
	"strings"
)

// Op is the kind of a diff run.
type Op int

const (
	Equal Op = iota
	Removed
	Added
)

func (o Op) String() string {
	switch o {
	case Equal:
		return "equal"
	case Removed:
		return "removed"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// Run is a contiguous sequence of lines sharing one Op.
type Run struct {
	Op    Op
	Lines []string
}

// Algorithm selects the sequence diff implementation.
type Algorithm string

const (
	// Myers uses github.com/sergi/go-diff over interned lines.
	Myers Algorithm = "myers"
	// Difflib uses the SequenceMatcher from github.com/pmezard/go-difflib.
	Difflib Algorithm = "difflib"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = Myers

var ErrUnknownAlgorithm = errors.New("unknown diff algorithm")

// ParseAlgorithm maps a config value to an Algorithm. The empty string selects DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultAlgorithm, nil
	case Myers:
		return Myers, nil
	case Difflib:
		return Difflib, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Normalize converts CRLF line endings to LF.
func Normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// SplitLines normalizes text and splits it on LF. A trailing line break yields a final empty line, and the empty text yields a single empty line, so the trailing
// EOL state of a document is part of its line sequence.
func SplitLines(text string) []string {
	return strings.Split(Normalize(text), "\n")
}

// DetectEOL returns the line ending used by the first line break in text, or "" if text has no line break.
func DetectEOL(text string) string {
	idx := strings.IndexByte(text, '\n')
	if idx < 0 {
		return ""
	}
	if idx > 0 && text[idx-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// Diff computes the runs that transform a into b.
//
// The runs cover a left-to-right without overlap. Between two Equal runs there is at most one Removed run followed by at most one Added run.
func Diff(a, b []string, alg Algorithm) ([]Run, error) {
	var runs []Run
	var err error
	switch alg {
	case Myers, "":
		runs = diffMyers(a, b)
	case Difflib:
		runs, err = diffDifflib(a, b)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
	}
	if err != nil {
		return nil, err
	}
	return canonicalize(runs), nil
}

// DiffText splits and diffs two texts.
func DiffText(original, updated string, alg Algorithm) ([]Run, error) {
	return Diff(SplitLines(original), SplitLines(updated), alg)
}

// canonicalize merges adjacent runs of the same op and orders each change region as removed-then-added.
func canonicalize(runs []Run) []Run {
	var out []Run
	var removed, added []string

	flush := func() {
		if len(removed) > 0 {
			out = append(out, Run{Op: Removed, Lines: removed})
		}
		if len(added) > 0 {
			out = append(out, Run{Op: Added, Lines: added})
		}
		removed, added = nil, nil
	}

	for _, r := range runs {
		if len(r.Lines) == 0 {
			continue
		}
		switch r.Op {
		case Removed:
			removed = append(removed, r.Lines...)
		case Added:
			added = append(added, r.Lines...)
		default:
			flush()
			if n := len(out); n > 0 && out[n-1].Op == Equal {
				out[n-1].Lines = append(out[n-1].Lines, r.Lines...)
				continue
			}
			out = append(out, Run{Op: Equal, Lines: append([]string(nil), r.Lines...)})
		}
	}
	flush()
	return out
}
