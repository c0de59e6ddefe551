package migmate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sanadlab/migmate/cli"
	"github.com/sanadlab/migmate/internal/fs"
	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/logging"
	"github.com/sanadlab/migmate/internal/nvim"
	"github.com/sanadlab/migmate/internal/parser"
	"github.com/sanadlab/migmate/internal/patcher"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/internal/session"
	"github.com/sanadlab/migmate/internal/source"
	"github.com/sanadlab/migmate/internal/state"
	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates loading content, reconciling it and applying the chosen hunks.
type App struct {
	cfg          *cli.Config
	pathResolver *fs.PathResolver
	logger       *zap.Logger
	stdout       io.Writer
	printer      *ui.Printer
	input        io.Reader

	progressCallback ProgressUpdate

	mu        sync.Mutex
	host      session.Host
	closeHost func()
	sessions  *session.Manager
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// Option customizes an App.
type Option func(*App)

// WithHost applies edits through h instead of the host named in the config.
func WithHost(h session.Host) Option {
	return func(a *App) { a.host = h }
}

// WithInput reads markdown input from r instead of stdin or the clipboard.
func WithInput(r io.Reader) Option {
	return func(a *App) { a.input = r }
}

// WithOutput sends diffs, planned edits and corrected diffs to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.stdout = w
		a.printer = ui.NewPrinter(w)
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New creates a new App instance.
func New(cfg *cli.Config, opts ...Option) (*App, error) {
	lookupDirs := cfg.LookupDirs
	if len(lookupDirs) == 0 && cfg.Source == cli.SourceDir && cfg.OriginalDir != "" {
		lookupDirs = []string{cfg.OriginalDir}
	}
	pathResolver, err := fs.NewPathResolver(lookupDirs)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:          cfg,
		pathResolver: pathResolver,
		stdout:       os.Stdout,
		printer:      ui.NewPrinter(os.Stdout),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		logger, err := logging.New(logging.Options{File: cfg.LogFile, Debug: cfg.Debug}, filepath.Join(a.stateRoot(), ".migmate"))
		if err != nil {
			return nil, err
		}
		a.logger = logger
	}
	return a, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Close releases the document host and flushes the log.
func (a *App) Close() {
	a.mu.Lock()
	closeHost := a.closeHost
	a.closeHost = nil
	a.mu.Unlock()
	if closeHost != nil {
		closeHost()
	}
	_ = a.logger.Sync()
}

// Execute executes the main application logic based on the config, applying every selected hunk without interaction.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastOperation(ctx)
	case a.cfg.Redo:
		return a.redoLastOperation(ctx)
	case a.cfg.FixDiff:
		return a.fixAndPrintDiffs()
	default:
		return a.reconcile(ctx)
	}
}

func (a *App) reconcile(ctx context.Context) (model.Summary, error) {
	run, err := a.Begin(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	defer run.Close()

	changes := run.Changes()
	if len(changes) == 0 {
		summary := model.Summary{
			Skipped: session.SortedSkipped(run.session.Skipped()),
			Message: "No differences found. Nothing to do.",
		}
		a.relativizeSummaryPaths(&summary)
		return summary, nil
	}

	switch {
	case a.cfg.PrintDiff:
		if err := run.PrintDiffs(a.stdout); err != nil {
			return model.Summary{}, err
		}
		return model.Summary{Message: fmt.Sprintf("Previewed %d file(s).", len(changes))}, nil
	case a.cfg.DryRun:
		if err := run.PrintPlan(ctx, a.printer, a.Selections(changes)); err != nil {
			return model.Summary{}, err
		}
		return model.Summary{Message: fmt.Sprintf("Planned %d file(s). Nothing was applied.", len(changes))}, nil
	default:
		return run.Apply(ctx, a.Selections(changes))
	}
}

// Begin loads the configured source and opens a reconciliation session over it. Only one run can be open per App.
func (a *App) Begin(ctx context.Context) (*Run, error) {
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	pairs, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}

	sessions, err := a.manager()
	if err != nil {
		return nil, err
	}
	s, err := sessions.Begin(ctx, pairs)
	if err != nil {
		return nil, err
	}

	run := &Run{app: a, session: s}
	if a.cfg.Watch {
		run.startWatch(s.Identities())
	}
	return run, nil
}

func (a *App) manager() (*session.Manager, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessions != nil {
		return a.sessions, nil
	}
	if a.host == nil {
		switch a.cfg.Host {
		case cli.HostNvim:
			m, err := nvim.New(!a.cfg.Buffer)
			if err != nil {
				return nil, err
			}
			a.host, a.closeHost = m, m.Close
		default:
			a.host = fs.NewDiskHost()
		}
	}
	a.sessions = session.NewManager(a.host, session.Options{
		Hunk: hunk.Options{
			Algorithm:    a.cfg.Algorithm,
			ContextLines: a.cfg.ContextLines,
		},
		Workers: a.cfg.Workers,
		Logger:  a.logger,
	})
	return a.sessions, nil
}

func (a *App) source() (source.Source, error) {
	filter := source.Filter{Include: a.cfg.Include, Exclude: a.cfg.Exclude}
	switch a.cfg.Source {
	case cli.SourceDir:
		return &source.DirSource{OriginalDir: a.cfg.OriginalDir, UpdatedDir: a.cfg.UpdatedDir, Filter: filter}, nil
	case cli.SourceGit:
		return &source.GitSource{Dir: a.pathResolver.Root(), Ref: a.cfg.Ref, Filter: filter}, nil
	case cli.SourceMarkdown:
		return &source.MarkdownSource{Input: a.input, Resolver: a.pathResolver, Filter: filter}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", a.cfg.Source)
	}
}

// Selections returns the hunks to apply per file. Without --select, or with --all, every hunk of every file is chosen. Otherwise files that were not
// listed are left out. Listed paths resolve like markdown paths, so for the dir source they are relative to the original directory.
func (a *App) Selections(changes []*model.MigrationChange) map[string]planner.Selection {
	out := make(map[string]planner.Selection, len(changes))
	if a.cfg.All || len(a.cfg.Selections) == 0 {
		for _, c := range changes {
			out[c.Identity] = planner.All()
		}
		return out
	}

	byPath := make(map[string]planner.Selection, len(a.cfg.Selections))
	for path, sel := range a.cfg.Selections {
		byPath[a.pathResolver.Resolve(path)] = sel
	}
	for _, c := range changes {
		if sel, ok := byPath[c.Identity]; ok {
			out[c.Identity] = sel
		}
	}
	return out
}

// stateRoot is the directory whose .migmate folder keeps the history: the enclosing repository, or the lookup root.
func (a *App) stateRoot() string {
	return state.FindRoot(a.pathResolver.Root())
}

// recordsHistory reports whether applied files end up on disk, where undo can find them.
func (a *App) recordsHistory() bool {
	return !(a.cfg.Host == cli.HostNvim && a.cfg.Buffer)
}

// fixAndPrintDiffs corrects the diff blocks of the markdown input and prints them.
func (a *App) fixAndPrintDiffs() (model.Summary, error) {
	content, err := source.ReadInput(a.input)
	if err != nil {
		return model.Summary{}, err
	}
	res, err := parser.Parse([]byte(content))
	if err != nil {
		return model.Summary{}, err
	}

	var summary model.Summary
	for _, d := range res.Diffs {
		var original string
		if path := a.pathResolver.ResolveExisting(d.FilePath); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return model.Summary{}, err
			}
			original = string(data)
		}
		corrected, err := patcher.CorrectDiff(original, d)
		if err != nil {
			a.logger.Warn("diff correction failed", zap.String("file", d.FilePath), zap.Error(err))
			summary.Failed = append(summary.Failed, d.FilePath)
			continue
		}
		fmt.Fprint(a.stdout, corrected)
		summary.Modified = append(summary.Modified, d.FilePath)
	}
	if len(res.Diffs) == 0 {
		summary.Message = "No diff blocks found."
	}
	return summary, nil
}

func (a *App) undoLastOperation(ctx context.Context) (model.Summary, error) {
	history, err := state.New(a.stateRoot())
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	ops, err := history.GetOperationsToUndo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}

	reverter, err := a.reverter(history)
	if err != nil {
		return model.Summary{}, err
	}
	undone, failed := state.Undo(ctx, reverter, ops, a.progress(len(ops)))

	summary := model.Summary{
		Modified: undone,
		Failed:   failed,
		Message:  "Undid last operation.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

func (a *App) redoLastOperation(ctx context.Context) (model.Summary, error) {
	history, err := state.New(a.stateRoot())
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	ops, err := history.GetOperationsToRedo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to redo."}, nil
	}

	reverter, err := a.reverter(history)
	if err != nil {
		return model.Summary{}, err
	}
	redone, failed := state.Redo(ctx, reverter, ops, a.progress(len(ops)))

	summary := model.Summary{
		Modified: redone,
		Failed:   failed,
		Message:  "Redid last undone operation.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

func (a *App) reverter(history *state.Manager) (state.Reverter, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch h := a.host.(type) {
	case state.Reverter:
		return h, nil
	case *fs.DiskHost:
		return state.NewDiskReverter(history, h), nil
	}
	if a.cfg.Host == cli.HostNvim {
		m, err := nvim.New(true)
		if err != nil {
			return nil, err
		}
		a.host, a.closeHost = m, m.Close
		return m, nil
	}
	return state.NewDiskReverter(history, fs.NewDiskHost()), nil
}

func (a *App) progress(total int) func(int) {
	if a.progressCallback == nil {
		return nil
	}
	a.progressCallback(0, total)
	return func(current int) {
		a.progressCallback(current, total)
	}
}

// relativizeSummaryPaths converts absolute file paths in a summary to be relative to the lookup root for display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	makeRelative := func(paths []string) []string {
		if paths == nil {
			return nil
		}
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = a.pathResolver.Relative(p)
		}
		sort.Strings(out)
		return out
	}

	summary.Modified = makeRelative(summary.Modified)
	summary.Failed = makeRelative(summary.Failed)
	summary.Skipped = makeRelative(summary.Skipped)
	if summary.Results != nil {
		results := make(map[string]model.Result, len(summary.Results))
		for p, r := range summary.Results {
			results[a.pathResolver.Relative(p)] = r
		}
		summary.Results = results
	}
}
