// Package report sends per-file verification results to the console or a file.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sanadlab/migmate/internal/fs"
	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/model"
)

// Sink receives the verification result of each applied file.
type Sink interface {
	Report(identity string, r model.Result) error
}

// Entry is one reported file.
type Entry struct {
	File    string `json:"file" yaml:"file"`
	Applied int    `json:"applied" yaml:"applied"`
	Total   int    `json:"total" yaml:"total"`
}

// Document is the content of a report file.
type Document struct {
	Session string  `json:"session,omitempty" yaml:"session,omitempty"`
	Files   []Entry `json:"files" yaml:"files"`
}

// ConsoleSink prints each result as it arrives.
type ConsoleSink struct {
	p *ui.Printer
}

// NewConsoleSink prints to p.
func NewConsoleSink(p *ui.Printer) *ConsoleSink {
	return &ConsoleSink{p: p}
}

func (s *ConsoleSink) Report(identity string, r model.Result) error {
	s.p.PrintResults(map[string]model.Result{identity: r})
	return nil
}

// FileSink collects results and writes them on Close, as JSON when the path ends in .json and as YAML otherwise.
type FileSink struct {
	path    string
	session string

	mu      sync.Mutex
	entries map[string]model.Result
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path, session string) *FileSink {
	return &FileSink{path: path, session: session, entries: make(map[string]model.Result)}
}

func (s *FileSink) Report(identity string, r model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[identity] = r
	return nil
}

// Close writes the report file atomically.
func (s *FileSink) Close() error {
	s.mu.Lock()
	doc := Document{Session: s.session, Files: make([]Entry, 0, len(s.entries))}
	for f, r := range s.entries {
		doc.Files = append(doc.Files, Entry{File: f, Applied: r.Applied, Total: r.Total})
	}
	s.mu.Unlock()
	sort.Slice(doc.Files, func(i, j int) bool { return doc.Files[i].File < doc.Files[j].File })

	data, err := Encode(doc, formatFor(s.path))
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// Encode renders doc as "json" or "yaml".
func Encode(doc Document, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
	return buf.Bytes(), nil
}

type multi []Sink

// Multi reports to every sink in order and returns the first error.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Report(identity string, r model.Result) error {
	var first error
	for _, s := range m {
		if err := s.Report(identity, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
