package fs

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sanadlab/migmate/internal/textedit"
	"github.com/sanadlab/migmate/model"
)

// DiskHost reads and writes documents directly on disk. Snapshot versions are content hashes, so any change to a file between Open and Apply is detected.
type DiskHost struct {
	mu sync.Mutex
}

// NewDiskHost returns a DiskHost.
func NewDiskHost() *DiskHost {
	return &DiskHost{}
}

// Open reads identity, an absolute path.
func (h *DiskHost) Open(ctx context.Context, identity string) (*textedit.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(identity)
	if err != nil {
		return nil, err
	}
	return textedit.NewVersion(string(data), HashContent(data)), nil
}

// Apply writes the edited content of identity atomically. It fails with textedit.ErrStale when the file no longer matches snap.
func (h *DiskHost) Apply(ctx context.Context, identity string, snap *textedit.Snapshot, edits []model.Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := os.ReadFile(identity)
	if err != nil {
		return err
	}
	if HashContent(current) != snap.Version {
		return fmt.Errorf("%s: %w", identity, textedit.ErrStale)
	}

	out, err := snap.Apply(edits)
	if err != nil {
		return err
	}
	return WriteFileAtomic(identity, []byte(out))
}

// Restore replaces identity with content if the file still hashes to expectHash.
func (h *DiskHost) Restore(ctx context.Context, identity, expectHash string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := GetFileSHA256(identity)
	if err != nil {
		return err
	}
	if current != expectHash {
		return fmt.Errorf("%s: %w", identity, textedit.ErrStale)
	}
	return WriteFileAtomic(identity, content)
}
