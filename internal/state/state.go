package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"gopkg.in/yaml.v3"

	"github.com/sanadlab/migmate/internal/fs"
)

const (
	stateDirName  = ".migmate"
	stateFileName = "history.yaml"
	objectsDir    = "objects"
)

// Operation records one file changed by an applied reconciliation.
type Operation struct {
	Path       string `yaml:"path"`
	BeforeHash string `yaml:"before"`
	AfterHash  string `yaml:"after"`
	Applied    int    `yaml:"applied"`
	Total      int    `yaml:"total"`
}

// HistoryEntry is one applied session.
type HistoryEntry struct {
	Session    string      `yaml:"session"`
	Timestamp  int64       `yaml:"timestamp"`
	Operations []Operation `yaml:"operations"`
}

// State is the content of the history file.
type State struct {
	History      []HistoryEntry `yaml:"history"`
	CurrentIndex int            `yaml:"current_index"`
}

// Manager owns the history file and the content objects it references.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// FindRoot returns the worktree root of the git repository containing start, or start itself outside a repository.
func FindRoot(start string) string {
	repo, err := git.PlainOpenWithOptions(start, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return start
	}
	wt, err := repo.Worktree()
	if err != nil {
		return start
	}
	return wt.Filesystem.Root()
}

// New loads the history kept under rootDir.
func New(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, objectsDir), 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not read history: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("invalid history file %s: %w", m.statePath, err)
	}
	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid history file %s: current index %d out of range", m.statePath, st.CurrentIndex)
	}
	m.state = &st
	return nil
}

func (m *Manager) save() error {
	data, err := yaml.Marshal(m.state)
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(m.statePath, data); err != nil {
		return fmt.Errorf("could not write history: %w", err)
	}
	return nil
}

// StoreObject saves content under its hash and returns the hash.
func (m *Manager) StoreObject(content []byte) (string, error) {
	hash := fs.HashContent(content)
	path := filepath.Join(m.StateDir, objectsDir, hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := fs.WriteFileAtomic(path, content); err != nil {
		return "", fmt.Errorf("could not store object: %w", err)
	}
	return hash, nil
}

// LoadObject returns the content stored under hash.
func (m *Manager) LoadObject(hash string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(m.StateDir, objectsDir, hash))
	if err != nil {
		return nil, fmt.Errorf("missing object %s: %w", hash, err)
	}
	return data, nil
}

// Record stores the before and after content of every changed file and appends a history entry. Entries after the current index are dropped.
func (m *Manager) Record(session string, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	ops := make([]Operation, 0, len(changes))
	for _, c := range changes {
		before, err := m.StoreObject([]byte(c.Before))
		if err != nil {
			return err
		}
		after, err := m.StoreObject([]byte(c.After))
		if err != nil {
			return err
		}
		ops = append(ops, Operation{
			Path:       c.Path,
			BeforeHash: before,
			AfterHash:  after,
			Applied:    c.Applied,
			Total:      c.Total,
		})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Session:    session,
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	})
	m.state.CurrentIndex++
	return m.save()
}

// Change is the content of one file around an apply.
type Change struct {
	Path    string
	Before  string
	After   string
	Applied int
	Total   int
}

// GetOperationsToUndo returns the operations of the current entry and moves the history pointer back.
func (m *Manager) GetOperationsToUndo() ([]Operation, error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	return ops, m.save()
}

// GetOperationsToRedo returns the operations of the next entry and moves the history pointer forward.
func (m *Manager) GetOperationsToRedo() ([]Operation, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return nil, nil
	}
	m.state.CurrentIndex = next
	return m.state.History[next].Operations, m.save()
}

// History returns a copy of the recorded entries and the current index.
func (m *Manager) History() ([]HistoryEntry, int) {
	return append([]HistoryEntry(nil), m.state.History...), m.state.CurrentIndex
}

// Reverter moves a file between the two recorded versions of an operation.
type Reverter interface {
	Revert(ctx context.Context, op Operation) error
	Reapply(ctx context.Context, op Operation) error
}

// Undo reverts ops one by one with r.
func Undo(ctx context.Context, r Reverter, ops []Operation, progressCb func(int)) (undone, failed []string) {
	return processSequentially(ops, func(op Operation) (string, bool) {
		return op.Path, r.Revert(ctx, op) == nil
	}, progressCb)
}

// Redo reapplies ops one by one with r.
func Redo(ctx context.Context, r Reverter, ops []Operation, progressCb func(int)) (redone, failed []string) {
	return processSequentially(ops, func(op Operation) (string, bool) {
		return op.Path, r.Reapply(ctx, op) == nil
	}, progressCb)
}

// processSequentially runs processFn over items in order, reporting progress after each.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return succeeded, failed
}

// DiskReverter restores recorded versions by rewriting files on disk.
type DiskReverter struct {
	host  *fs.DiskHost
	state *Manager
}

// NewDiskReverter returns a Reverter backed by host and the objects of m.
func NewDiskReverter(m *Manager, host *fs.DiskHost) *DiskReverter {
	return &DiskReverter{host: host, state: m}
}

// Revert restores the before version if the file still holds the after version.
func (r *DiskReverter) Revert(ctx context.Context, op Operation) error {
	content, err := r.state.LoadObject(op.BeforeHash)
	if err != nil {
		return err
	}
	return r.host.Restore(ctx, op.Path, op.AfterHash, content)
}

// Reapply restores the after version if the file still holds the before version.
func (r *DiskReverter) Reapply(ctx context.Context, op Operation) error {
	content, err := r.state.LoadObject(op.AfterHash)
	if err != nil {
		return err
	}
	return r.host.Restore(ctx, op.Path, op.BeforeHash, content)
}
