package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/migmate"
	"github.com/sanadlab/migmate/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

const previewLines = 8

// --- Messages ---
type loadedMsg struct{ run *migmate.Run }

type progressMsg struct{ current, total int }

type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// item is one selectable unit: a replacement pair or a standalone hunk.
type item struct {
	identity string
	path     string
	ids      []int
	removed  []string
	added    []string
	line     int
}

// --- Model ---
type Model struct {
	ctx      context.Context
	app      *migmate.App
	run      *migmate.Run
	spinner  spinner.Model
	progress progress.Model
	state    state

	items    []item
	selected map[int]bool
	cursor   int

	current, total int
	summary        summaryMsg
	err            error
}

type state int

const (
	stateLoading state = iota
	stateSelecting
	stateApplying
	stateSummary
	stateError
)

func New(app *migmate.App) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Model{
		ctx:      context.Background(),
		app:      app,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		state:    stateLoading,
		selected: make(map[int]bool),
	}
}

// SetProgram routes apply progress from the app into p.
func (m *Model) SetProgram(p *tea.Program) {
	m.app.SetProgressCallback(func(current, total int) {
		p.Send(progressMsg{current: current, total: total})
	})
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.begin)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeRun()
			return m, tea.Quit
		}
		if m.state == stateSelecting {
			return m.updateSelecting(msg)
		}
		if msg.String() == "q" && m.state != stateApplying {
			m.closeRun()
			return m, tea.Quit
		}

	case loadedMsg:
		m.run = msg.run
		m.items = buildItems(msg.run)
		if len(m.items) == 0 {
			skipped := msg.run.Skipped()
			m.closeRun()
			m.state = stateSummary
			m.summary = summaryMsg{Summary: model.Summary{Skipped: skipped, Message: "No differences found. Nothing to do."}}
			return m, tea.Quit
		}
		for i := range m.items {
			m.selected[i] = true
		}
		m.state = stateSelecting
		return m, nil

	case progressMsg:
		m.current, m.total = msg.current, msg.total
		return m, nil

	case summaryMsg:
		m.closeRun()
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.closeRun()
		m.state = stateError
		m.err = msg
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateLoading || m.state == stateApplying {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateSelecting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.closeRun()
		m.state = stateSummary
		m.summary = summaryMsg{Summary: model.Summary{Message: "Cancelled. No files were changed."}}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "x":
		m.selected[m.cursor] = !m.selected[m.cursor]
	case "a":
		all := m.countSelected() == len(m.items)
		for i := range m.items {
			m.selected[i] = !all
		}
	case "enter":
		m.state = stateApplying
		return m, tea.Batch(m.spinner.Tick, m.apply(m.Selections()))
	}
	return m, nil
}

func (m *Model) countSelected() int {
	n := 0
	for _, on := range m.selected {
		if on {
			n++
		}
	}
	return n
}

// Selections returns the chosen hunks grouped by file. Files with nothing chosen are absent.
func (m *Model) Selections() map[string]planner.Selection {
	out := make(map[string]planner.Selection)
	for i, it := range m.items {
		if !m.selected[i] {
			continue
		}
		out[it.identity] = out[it.identity].Add(it.ids...)
	}
	return out
}

func (m *Model) closeRun() {
	if m.run != nil {
		m.run.Close()
		m.run = nil
	}
}

func (m *Model) View() string {
	switch m.state {
	case stateLoading:
		return fmt.Sprintf("%s Reconciling...", m.spinner.View())
	case stateSelecting:
		return m.renderSelection()
	case stateApplying:
		if m.total == 0 {
			return fmt.Sprintf("%s Applying...", m.spinner.View())
		}
		return fmt.Sprintf("%s Applying %s %d/%d", m.spinner.View(),
			m.progress.ViewAs(float64(m.current)/float64(m.total)), m.current, m.total)
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error())
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSelection() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Select hunks to apply (%d/%d)", m.countSelected(), len(m.items))))
	b.WriteString("\n\n")

	lastPath := ""
	for i, it := range m.items {
		if it.path != lastPath {
			b.WriteString(pathStyle.Bold(true).Render(it.path))
			b.WriteString("\n")
			lastPath = it.path
		}
		mark := "[ ]"
		if m.selected[i] {
			mark = successStyle.Render("[x]")
		}
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		fmt.Fprintf(&b, "%s%s line %d  %s %s\n", pointer, mark, it.line+1,
			removedStyle.Render(fmt.Sprintf("-%d", len(it.removed))),
			addedStyle.Render(fmt.Sprintf("+%d", len(it.added))))
	}

	if m.cursor < len(m.items) {
		b.WriteString("\n")
		b.WriteString(renderPreview(m.items[m.cursor]))
	}
	b.WriteString("\n")
	b.WriteString(faintStyle.Render("space: toggle  a: toggle all  enter: apply  q: cancel"))
	return b.String()
}

func renderPreview(it item) string {
	var lines []string
	for _, l := range it.removed {
		lines = append(lines, removedStyle.Render("-"+l))
	}
	for _, l := range it.added {
		lines = append(lines, addedStyle.Render("+"+l))
	}
	if len(lines) > previewLines {
		more := len(lines) - previewLines
		lines = append(lines[:previewLines], faintStyle.Render(fmt.Sprintf("... %d more line(s)", more)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	if len(m.summary.Modified) > 0 {
		hasContent = true
		b.WriteString(successStyle.Render("Modified:"))
		b.WriteString("\n")
		for _, f := range m.summary.Modified {
			line := pathStyle.Render(f)
			if r, ok := m.summary.Results[f]; ok {
				line += faintStyle.Render(fmt.Sprintf(" (%d/%d applied)", r.Applied, r.Total))
			}
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if len(m.summary.Skipped) > 0 {
		hasContent = true
		b.WriteString(warningStyle.Render("Skipped:"))
		b.WriteString("\n")
		for _, f := range m.summary.Skipped {
			fmt.Fprintf(&b, "  %s\n", pathStyle.Render(f))
		}
	}
	if len(m.summary.Failed) > 0 {
		hasContent = true
		b.WriteString(errorStyle.Render("Failed:"))
		b.WriteString("\n")
		for _, f := range m.summary.Failed {
			fmt.Fprintf(&b, "  %s\n", pathStyle.Render(f))
		}
	}

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
	}

	return b.String()
}

func (m *Model) begin() tea.Msg {
	run, err := m.app.Begin(m.ctx)
	if err != nil {
		return errorMsg{err}
	}
	return loadedMsg{run: run}
}

func (m *Model) apply(selections map[string]planner.Selection) tea.Cmd {
	run := m.run
	return func() tea.Msg {
		summary, err := run.Apply(m.ctx, selections)
		if err != nil {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			var e *migmate.DetailedError
			if errors.As(err, &e) {
				fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
			}
			return errorMsg{err}
		}
		return summaryMsg{Summary: summary}
	}
}

// buildItems lists the pairs and standalone hunks of every change in file order.
func buildItems(run *migmate.Run) []item {
	var items []item
	for _, c := range run.Changes() {
		path := run.Relative(c.Identity)
		for _, h := range c.Hunks {
			it := item{identity: c.Identity, path: path, ids: []int{h.ID}, line: h.OriginalStartLine}
			other, paired := hunk.FindPaired(h, c.Hunks)
			switch {
			case paired && h.Type == model.HunkAdded:
				continue
			case paired:
				it.ids = append(it.ids, other.ID)
				it.removed, it.added = h.Lines, other.Lines
			case h.Type == model.HunkRemoved:
				it.removed = h.Lines
			default:
				it.added = h.Lines
			}
			items = append(items, it)
		}
	}
	return items
}
