// Package source loads the original and updated content of the files to reconcile.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/sanadlab/migmate/model"
)

// Source produces content pairs. Files that cannot be paired are skipped with a warning rather than failing the load.
type Source interface {
	Load(ctx context.Context) ([]model.ContentPair, error)
}

// Filter selects files by slash-separated path relative to a root. An empty Include matches everything; Exclude wins over Include.
type Filter struct {
	Include []string
	Exclude []string
}

// Match reports whether rel passes the filter.
func (f Filter) Match(rel string) bool {
	rel = filepath.ToSlash(strings.TrimPrefix(rel, "./"))
	if matchAny(f.Exclude, rel) {
		return false
	}
	return len(f.Include) == 0 || matchAny(f.Include, rel)
}

// Validate checks that every pattern is well formed.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

func matchAny(patterns []string, rel string) bool {
	for _, raw := range patterns {
		pat := filepath.ToSlash(strings.TrimSpace(raw))
		if pat == "" {
			continue
		}
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ReadInput reads r, or stdin when it is piped, or else the clipboard.
func ReadInput(r io.Reader) (string, error) {
	if r == nil {
		stat, err := os.Stdin.Stat()
		if err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			r = os.Stdin
		}
	}
	if r != nil {
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(content), nil
	}

	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, nil
}
