package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/sanadlab/migmate/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	FaintColor   = color.New(color.Faint)
)

// Printer writes colored, human oriented output.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

var std = NewPrinter(os.Stderr)

func Header(format string, a ...any)  { std.Header(format, a...) }
func Info(format string, a ...any)    { std.Info(format, a...) }
func Success(format string, a ...any) { std.Success(format, a...) }
func Warning(format string, a ...any) { std.Warning(format, a...) }
func Error(format string, a ...any)   { std.Error(format, a...) }
func Path(format string, a ...any)    { std.Path(format, a...) }

func (p *Printer) Header(format string, a ...any)  { HeaderColor.Fprintf(p.w, format+"\n", a...) }
func (p *Printer) Info(format string, a ...any)    { InfoColor.Fprintf(p.w, format+"\n", a...) }
func (p *Printer) Success(format string, a ...any) { SuccessColor.Fprintf(p.w, format+"\n", a...) }
func (p *Printer) Warning(format string, a ...any) { WarningColor.Fprintf(p.w, format+"\n", a...) }
func (p *Printer) Error(format string, a ...any)   { ErrorColor.Fprintf(p.w, format+"\n", a...) }
func (p *Printer) Path(format string, a ...any)    { PathColor.Fprintf(p.w, "  "+format+"\n", a...) }

// --- Hunks ---

// PrintChange lists the hunks of change with their ids, paired hunks grouped under one header.
func (p *Printer) PrintChange(change *model.MigrationChange) {
	HeaderColor.Fprintf(p.w, "%s\n", change.Identity)
	if len(change.Hunks) == 0 {
		FaintColor.Fprintln(p.w, "  no changes")
		return
	}

	printed := make(map[int]bool, len(change.Hunks))
	for _, h := range change.Hunks {
		if printed[h.ID] {
			continue
		}
		printed[h.ID] = true

		if h.IsPaired() {
			other, ok := change.Hunk(*h.PairedHunkID)
			if ok {
				printed[other.ID] = true
				InfoColor.Fprintf(p.w, "  [%d+%d] replace at line %d\n", h.ID, other.ID, h.OriginalStartLine+1)
				p.printLines(h)
				p.printLines(other)
				continue
			}
		}

		verb := "insert before"
		if h.Type == model.HunkRemoved {
			verb = "delete at"
		}
		InfoColor.Fprintf(p.w, "  [%d] %s line %d\n", h.ID, verb, h.OriginalStartLine+1)
		p.printLines(h)
	}
}

func (p *Printer) printLines(h model.Hunk) {
	c, prefix := AddedColor, "+"
	if h.Type == model.HunkRemoved {
		c, prefix = RemovedColor, "-"
	}
	for _, l := range h.Lines {
		c.Fprintf(p.w, "    %s%s\n", prefix, l)
	}
}

// PrintEdits shows a planned edit batch without applying it.
func (p *Printer) PrintEdits(identity string, edits []model.Edit) {
	HeaderColor.Fprintf(p.w, "%s: %d edit(s)\n", identity, len(edits))
	for _, e := range edits {
		r := e.Range
		InfoColor.Fprintf(p.w, "  %d:%d-%d:%d ", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
		fmt.Fprintf(p.w, "%q\n", e.Text)
	}
}

// --- Summaries ---

// PrintSummary prints the outcome of a run.
func (p *Printer) PrintSummary(title string, s model.Summary) {
	p.Header("\n--- %s ---", title)
	if s.Message != "" {
		p.Info("%s", s.Message)
	}

	if len(s.Modified) == 0 && len(s.Failed) == 0 && len(s.Skipped) == 0 {
		if s.Message == "" {
			p.Info("No files were updated.")
		}
		return
	}

	if len(s.Modified) > 0 {
		p.Success("Updated %d file(s):", len(s.Modified))
		for _, f := range s.Modified {
			if r, ok := s.Results[f]; ok {
				fmt.Fprintf(p.w, "  - %s (%d/%d hunks applied)\n", f, r.Applied, r.Total)
			} else {
				fmt.Fprintf(p.w, "  - %s\n", f)
			}
		}
	}
	if len(s.Skipped) > 0 {
		p.Warning("Skipped %d file(s):", len(s.Skipped))
		for _, f := range s.Skipped {
			fmt.Fprintf(p.w, "  - %s\n", f)
		}
	}
	if len(s.Failed) > 0 {
		p.Error("Failed to update %d file(s):", len(s.Failed))
		for _, f := range s.Failed {
			fmt.Fprintf(p.w, "  - %s\n", f)
		}
	}
}

// PrintSummary prints s to stderr.
func PrintSummary(title string, s model.Summary) { std.PrintSummary(title, s) }

// PrintResults prints per-file verification counts sorted by file.
func (p *Printer) PrintResults(results map[string]model.Result) {
	files := make([]string, 0, len(results))
	for f := range results {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		r := results[f]
		c := SuccessColor
		if r.Applied < r.Total {
			c = WarningColor
		}
		c.Fprintf(p.w, "  %s: %d/%d\n", f, r.Applied, r.Total)
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	w       io.Writer
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{w: os.Stderr, total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Increment() {
	p.Set(p.current + 1)
}

func (p *ProgressBar) Finish() {
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filled := int(percent * barLength)
	bar := strings.Repeat("█", filled) + strings.Repeat("-", barLength-filled)
	fmt.Fprintf(p.w, "\r%s |%s| [%d/%d] %.1f%%", p.prefix, bar, p.current, p.total, percent*100)
}
