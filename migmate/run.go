package migmate

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/patcher"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/internal/report"
	"github.com/sanadlab/migmate/internal/session"
	"github.com/sanadlab/migmate/internal/state"
	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/internal/watch"
	"github.com/sanadlab/migmate/model"
)

// Run is an open reconciliation session of an App.
type Run struct {
	app       *App
	session   *session.Session
	stopWatch func()
}

// ID identifies the underlying session.
func (r *Run) ID() string {
	return r.session.ID
}

// Changes returns the pending changes ordered by file.
func (r *Run) Changes() []*model.MigrationChange {
	return r.session.Changes()
}

// Skipped returns the files that could not be reconciled, sorted.
func (r *Run) Skipped() []string {
	return session.SortedSkipped(r.session.Skipped())
}

// Relative returns identity as shown to the user.
func (r *Run) Relative(identity string) string {
	return r.app.pathResolver.Relative(identity)
}

// Close ends the session without applying what is left.
func (r *Run) Close() {
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
	r.session.Close()
}

func (r *Run) startWatch(identities []string) {
	if len(identities) == 0 {
		return
	}
	logger := r.app.logger
	w, err := watch.New(identities, logger)
	if err != nil {
		logger.Warn("file watching disabled", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, r.session.Supersede)
	}()
	r.stopWatch = func() {
		cancel()
		<-done
		_ = w.Close()
	}
}

// PrintDiffs writes a unified diff of every pending change to w.
func (r *Run) PrintDiffs(w io.Writer) error {
	lines := r.app.cfg.ContextLines
	if lines <= 0 {
		lines = hunk.DefaultContextLines
	}
	for _, c := range r.Changes() {
		rel := filepath.ToSlash(r.Relative(c.Identity))
		text, err := patcher.UnifiedDiff("a/"+rel, "b/"+rel, c.OriginalContent, c.UpdatedContent, lines)
		if err != nil {
			return err
		}
		fmt.Fprint(w, text)
	}
	return nil
}

// PrintPlan prints the hunks of each selected file and the edits they would make on the current document.
func (r *Run) PrintPlan(ctx context.Context, p *ui.Printer, selections map[string]planner.Selection) error {
	for _, c := range r.Changes() {
		sel, ok := selections[c.Identity]
		if !ok {
			continue
		}
		edits, _, err := r.session.Plan(ctx, c.Identity, sel)
		if err != nil {
			return err
		}
		p.PrintChange(c)
		p.PrintEdits(r.Relative(c.Identity), edits)
	}
	return nil
}

// Apply applies selections file by file. Files without a selection are dropped from the session untouched. A file that fails does not stop the others.
func (r *Run) Apply(ctx context.Context, selections map[string]planner.Selection) (model.Summary, error) {
	a := r.app
	identities := r.session.Identities()

	var sinks []report.Sink
	var fileSink *report.FileSink
	if a.cfg.Report != "" {
		fileSink = report.NewFileSink(a.cfg.Report, r.session.ID)
		sinks = append(sinks, fileSink)
	}
	if a.cfg.NoTUI {
		sinks = append(sinks, report.NewConsoleSink(a.printer))
	}
	sink := report.Multi(sinks...)

	summary := model.Summary{Results: make(map[string]model.Result)}
	var records []state.Change
	progress := a.progress(len(identities))
	unselected := 0

	for i, identity := range identities {
		sel, ok := selections[identity]
		if !ok {
			r.session.Discard(identity)
			unselected++
			if progress != nil {
				progress(i + 1)
			}
			continue
		}

		out, err := r.session.Apply(ctx, identity, sel)
		if progress != nil {
			progress(i + 1)
		}
		if err != nil {
			a.logger.Warn("file not updated", zap.String("file", identity), zap.Error(err))
			summary.Failed = append(summary.Failed, identity)
			continue
		}

		summary.Results[identity] = out.Result
		if err := sink.Report(r.Relative(identity), out.Result); err != nil {
			a.logger.Warn("report failed", zap.Error(err))
		}
		if out.Edits == 0 {
			continue
		}
		summary.Modified = append(summary.Modified, identity)
		records = append(records, state.Change{
			Path:    identity,
			Before:  out.Before,
			After:   out.After,
			Applied: out.Result.Applied,
			Total:   out.Result.Total,
		})
	}
	summary.Skipped = r.Skipped()

	if fileSink != nil {
		if err := fileSink.Close(); err != nil {
			return model.Summary{}, err
		}
	}
	if len(records) > 0 && a.recordsHistory() {
		history, err := state.New(a.stateRoot())
		if err == nil {
			err = history.Record(r.session.ID, records)
		}
		if err != nil {
			return model.Summary{}, fmt.Errorf("failed to record history: %w", err)
		}
	}
	if unselected > 0 {
		summary.Message = fmt.Sprintf("%d file(s) had no selected hunks and were left unchanged.", unselected)
	}

	a.relativizeSummaryPaths(&summary)
	return summary, nil
}
