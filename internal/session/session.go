// Package session owns the state between computing hunks and applying a selection of them.
//
// A Manager hands out at most one active Session. The session holds one MigrationChange per file and is the only writer of that map; applying, discarding or
// closing removes entries, and a closed session holds nothing.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanadlab/migmate/internal/differ"
	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/logging"
	"github.com/sanadlab/migmate/internal/planner"
	"github.com/sanadlab/migmate/internal/textedit"
	"github.com/sanadlab/migmate/internal/verify"
	"github.com/sanadlab/migmate/model"
)

var (
	ErrSessionActive = errors.New("a reconciliation session is already active")
	ErrClosed        = errors.New("session is closed")
	ErrNoChange      = errors.New("no pending change for file")
	ErrSuperseded    = errors.New("file changed after the session began")
	ErrStale         = textedit.ErrStale
)

// Host opens documents and applies edit batches to them. Apply must apply all edits against snap atomically and fail with ErrStale if the document changed
// since snap was taken.
type Host interface {
	Open(ctx context.Context, identity string) (*textedit.Snapshot, error)
	Apply(ctx context.Context, identity string, snap *textedit.Snapshot, edits []model.Edit) error
}

// Options configures hunk computation and logging.
type Options struct {
	Hunk hunk.Options
	// Workers bounds concurrent per-file diffing. Zero or less means one per file.
	Workers int
	Logger  *zap.Logger
}

// Manager enforces a single active session.
type Manager struct {
	host   Host
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	active *Session
}

// NewManager returns a Manager applying edits through host.
func NewManager(host Host, opts Options) *Manager {
	return &Manager{
		host:   host,
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
	}
}

// Begin computes hunks for pairs and returns the new session. It fails with ErrSessionActive without touching any state while another session is open. Pairs
// that cannot be diffed are recorded in Session.Skipped and do not fail the call.
func (m *Manager) Begin(ctx context.Context, pairs []model.ContentPair) (*Session, error) {
	m.mu.Lock()
	if m.active != nil {
		id := m.active.ID
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (session %s)", ErrSessionActive, id)
	}
	s := &Session{
		ID:         uuid.NewString(),
		manager:    m,
		changes:    make(map[string]*model.MigrationChange),
		skipped:    make(map[string]error),
		superseded: make(map[string]bool),
	}
	m.active = s
	m.mu.Unlock()

	changes, skipped, err := BuildChanges(ctx, pairs, m.opts)
	if err != nil {
		m.release(s)
		return nil, err
	}

	s.mu.Lock()
	for _, c := range changes {
		s.changes[c.Identity] = c
	}
	for identity, err := range skipped {
		s.skipped[identity] = err
	}
	s.mu.Unlock()

	m.logger.Info("session started",
		zap.String("session", s.ID),
		zap.Int("files", len(changes)),
		zap.Int("skipped", len(skipped)))
	return s, nil
}

// Active returns the open session, if any.
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}

// Outcome describes one applied file.
type Outcome struct {
	Identity string
	Edits    int
	Result   model.Result
	// Before and After are the document contents around the apply.
	Before string
	After  string
}

// Session is one reconciliation pass over a set of files.
type Session struct {
	ID string

	manager *Manager

	mu         sync.Mutex
	closed     bool
	changes    map[string]*model.MigrationChange
	skipped    map[string]error
	superseded map[string]bool
}

// Identities returns the files with pending changes, sorted.
func (s *Session) Identities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.changes))
	for id := range s.changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Changes returns the pending changes ordered by identity.
func (s *Session) Changes() []*model.MigrationChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.MigrationChange, 0, len(s.changes))
	for _, c := range s.changes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Change returns the pending change for identity.
func (s *Session) Change(identity string) (*model.MigrationChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.changes[identity]
	return c, ok
}

// Skipped returns the files that could not be diffed and why.
func (s *Session) Skipped() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]error, len(s.skipped))
	for k, v := range s.skipped {
		out[k] = v
	}
	return out
}

// Supersede marks identity as changed behind the session's back. Its change is dropped on the next Plan or Apply.
func (s *Session) Supersede(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.changes[identity]; ok && !s.closed {
		s.superseded[identity] = true
	}
}

// Discard drops the pending change for identity without applying it.
func (s *Session) Discard(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked(identity)
}

func (s *Session) discardLocked(identity string) {
	delete(s.changes, identity)
	delete(s.superseded, identity)
}

// Pending reports how many files still have changes.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

// Plan returns the edits sel would make on the current document of identity, without applying them. It fails with ErrStale when the document no longer
// holds the content the hunks were computed from.
func (s *Session) Plan(ctx context.Context, identity string, sel planner.Selection) ([]model.Edit, *textedit.Snapshot, error) {
	s.mu.Lock()
	change, err := s.changeLocked(identity)
	s.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.manager.host.Open(ctx, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", identity, err)
	}
	edits, err := plan(change, sel, snap)
	if err != nil {
		return nil, nil, fmt.Errorf("plan %s: %w", identity, err)
	}
	return edits, snap, nil
}

// Apply plans sel against the current document of identity and applies the edits as one batch. The change leaves the session before any host call, so it is
// gone whether the apply succeeds or fails; after a failure the caller must begin a new session from fresh content. An invalid selection fails without side
// effects. Host calls run without holding the session lock.
func (s *Session) Apply(ctx context.Context, identity string, sel planner.Selection) (Outcome, error) {
	logger := s.manager.logger.With(zap.String("session", s.ID), zap.String("file", identity))

	s.mu.Lock()
	change, err := s.changeLocked(identity)
	if err == nil {
		if err = sel.Validate(change.Hunks); err != nil {
			err = fmt.Errorf("%s: %w", identity, err)
		}
	}
	if err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	s.discardLocked(identity)
	s.mu.Unlock()

	fail := func(err error) (Outcome, error) {
		logger.Warn("apply failed, change discarded", zap.Error(err))
		return Outcome{}, err
	}

	host := s.manager.host
	snap, err := host.Open(ctx, identity)
	if err != nil {
		return fail(fmt.Errorf("open %s: %w", identity, err))
	}
	edits, err := plan(change, sel, snap)
	if err != nil {
		return fail(fmt.Errorf("plan %s: %w", identity, err))
	}

	out := Outcome{Identity: identity, Edits: len(edits), Before: snap.Content(), After: snap.Content()}
	if len(edits) > 0 {
		if err := host.Apply(ctx, identity, snap, edits); err != nil {
			return fail(fmt.Errorf("apply %s: %w", identity, err))
		}
		if after, err := host.Open(ctx, identity); err == nil {
			out.After = after.Content()
		} else if expected, err := snap.Apply(edits); err == nil {
			out.After = expected
		}
	}
	out.Result = verify.DetectAppliedSelected(change.Hunks, sel, out.Before, out.After)

	logger.Info("applied",
		zap.Int("edits", out.Edits),
		zap.Int("applied", out.Result.Applied),
		zap.Int("total", out.Result.Total))
	return out, nil
}

// plan checks that snap still holds the content change was computed from and plans sel on it. Line endings are ignored in the comparison.
func plan(change *model.MigrationChange, sel planner.Selection, snap *textedit.Snapshot) ([]model.Edit, error) {
	if differ.Normalize(snap.Content()) != differ.Normalize(change.OriginalContent) {
		return nil, fmt.Errorf("%w: document changed since the hunks were computed", ErrStale)
	}
	edits, err := planner.Plan(sel, change.Hunks, snap)
	if errors.Is(err, planner.ErrOutOfRange) {
		err = fmt.Errorf("%w: %w", ErrStale, err)
	}
	return edits, err
}

func (s *Session) changeLocked(identity string) (*model.MigrationChange, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.superseded[identity] {
		s.discardLocked(identity)
		return nil, fmt.Errorf("%s: %w", identity, ErrSuperseded)
	}
	change, ok := s.changes[identity]
	if !ok {
		return nil, fmt.Errorf("%s: %w", identity, ErrNoChange)
	}
	return change, nil
}

// Cancel abandons every pending change and ends the session. Nothing has been written for files that were not applied.
func (s *Session) Cancel() {
	s.end("session cancelled")
}

// Close ends the session and releases the manager for a new one. It is safe to call more than once.
func (s *Session) Close() {
	s.end("session closed")
}

func (s *Session) end(msg string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	pending := len(s.changes)
	s.closed = true
	s.changes = map[string]*model.MigrationChange{}
	s.superseded = map[string]bool{}
	s.mu.Unlock()

	s.manager.release(s)
	s.manager.logger.Info(msg, zap.String("session", s.ID), zap.Int("pending", pending))
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
