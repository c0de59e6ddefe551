// Package migmate reconciles an original and an updated version of text files into selectable hunks and applies any subset of them to the live
// documents.
package migmate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sanadlab/migmate/cli"
	"github.com/sanadlab/migmate/internal/differ"
	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/internal/textedit"
	"github.com/sanadlab/migmate/internal/verify"
	"github.com/sanadlab/migmate/model"
)

// Selection names the hunks of one file to apply.
type Selection = planner.Selection

// All selects every hunk.
func All() Selection { return planner.All() }

// IDs selects the hunks with the given ids.
func IDs(ids ...int) Selection { return planner.IDs(ids...) }

// Options tunes hunk computation. The zero value uses the Myers diff and three context lines.
type Options struct {
	// Algorithm is "myers" or "difflib".
	Algorithm    string
	ContextLines int
}

// Reconcile computes the hunks that turn original into updated.
func Reconcile(identity, original, updated string, opts Options) (*model.MigrationChange, error) {
	alg, err := differ.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	return hunk.Build(identity, original, updated, hunk.Options{Algorithm: alg, ContextLines: opts.ContextLines})
}

// Plan returns the edits that apply sel of change to document.
func Plan(change *model.MigrationChange, sel Selection, document string) ([]model.Edit, error) {
	return planner.Plan(sel, change.Hunks, textedit.New(document))
}

// Apply applies sel of change to document and returns the new text with its verification result.
func Apply(change *model.MigrationChange, sel Selection, document string) (string, model.Result, error) {
	snap := textedit.New(document)
	edits, err := planner.Plan(sel, change.Hunks, snap)
	if err != nil {
		return "", model.Result{}, err
	}
	out, err := snap.Apply(edits)
	if err != nil {
		return "", model.Result{}, err
	}
	return out, verify.DetectAppliedSelected(change.Hunks, sel, document, out), nil
}

// Verify estimates how many hunks of change are realized in after, given the document before the apply.
func Verify(change *model.MigrationChange, before, after string) model.Result {
	return verify.DetectApplied(change.Hunks, before, after)
}

// Config for applying markdown content as a library.
type Config struct {
	// LookupDirs resolve the file paths named in the content. Defaults to the working directory.
	LookupDirs []string
	Include    []string
	Exclude    []string
	// Nvim edits through Neovim instead of writing files directly.
	Nvim bool
	// Buffer leaves Neovim buffers unsaved.
	Buffer bool
}

// ApplyMarkdown takes whole-file and diff blocks from content and applies all of their hunks to the named files. It returns the summary as a map of
// category to relative paths.
func ApplyMarkdown(ctx context.Context, content string, config Config) (map[string][]string, error) {
	cfg := &cli.Config{
		Source:       cli.SourceMarkdown,
		Host:         cli.HostDisk,
		LookupDirs:   config.LookupDirs,
		Include:      config.Include,
		Exclude:      config.Exclude,
		Buffer:       config.Buffer,
		Algorithm:    differ.DefaultAlgorithm,
		ContextLines: hunk.DefaultContextLines,
		All:          true,
	}
	if config.Nvim {
		cfg.Host = cli.HostNvim
	}

	app, err := New(cfg, WithInput(strings.NewReader(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migmate app: %w", err)
	}
	defer app.Close()

	summary, err := app.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return map[string][]string{
		"Modified": summary.Modified,
		"Failed":   summary.Failed,
		"Skipped":  summary.Skipped,
	}, nil
}
