package textedit

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/sanadlab/migmate/model"
)

// Buffer is an in-memory document host. Every successful Apply bumps the document's version.
type Buffer struct {
	mu   sync.Mutex
	docs map[string]*bufferDoc
}

type bufferDoc struct {
	content string
	version int
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{docs: make(map[string]*bufferDoc)}
}

// Set replaces the content of identity, as an outside edit would.
func (b *Buffer) Set(identity, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[identity]
	if !ok {
		b.docs[identity] = &bufferDoc{content: content}
		return
	}
	d.content = content
	d.version++
}

// Content returns the current content of identity.
func (b *Buffer) Content(identity string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[identity]
	if !ok {
		return "", false
	}
	return d.content, true
}

// Open returns a snapshot of identity.
func (b *Buffer) Open(ctx context.Context, identity string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[identity]
	if !ok {
		return nil, fmt.Errorf("buffer %s: not open", identity)
	}
	return NewVersion(d.content, strconv.Itoa(d.version)), nil
}

// Apply applies edits planned against snap. It fails with ErrStale if identity changed since snap was taken.
func (b *Buffer) Apply(ctx context.Context, identity string, snap *Snapshot, edits []model.Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[identity]
	if !ok {
		return fmt.Errorf("buffer %s: not open", identity)
	}
	if strconv.Itoa(d.version) != snap.Version {
		return fmt.Errorf("buffer %s: %w", identity, ErrStale)
	}
	out, err := snap.Apply(edits)
	if err != nil {
		return fmt.Errorf("buffer %s: %w", identity, err)
	}
	d.content = out
	d.version++
	return nil
}
