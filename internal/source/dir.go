package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sanadlab/migmate/internal/ui"
	"github.com/sanadlab/migmate/model"
)

// DirSource pairs each file of UpdatedDir with the file at the same relative path in OriginalDir. Identities are absolute paths under OriginalDir,
// which holds the documents that get edited.
type DirSource struct {
	OriginalDir string
	UpdatedDir  string
	Filter      Filter
}

func (s *DirSource) Load(ctx context.Context) ([]model.ContentPair, error) {
	origRoot, err := filepath.Abs(s.OriginalDir)
	if err != nil {
		return nil, err
	}
	updRoot, err := filepath.Abs(s.UpdatedDir)
	if err != nil {
		return nil, err
	}
	if err := s.Filter.Validate(); err != nil {
		return nil, err
	}

	var pairs []model.ContentPair
	err = filepath.WalkDir(updRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != updRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(updRoot, path)
		if err != nil {
			return err
		}
		if !s.Filter.Match(rel) {
			return nil
		}

		updated, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		identity := filepath.Join(origRoot, rel)
		original, err := os.ReadFile(identity)
		if errors.Is(err, fs.ErrNotExist) {
			ui.Warning("Skipping %s: no original file", rel)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", identity, err)
		}

		pairs = append(pairs, model.ContentPair{
			Identity: identity,
			Original: string(original),
			Updated:  string(updated),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func skipDir(name string) bool {
	switch name {
	case ".git", ".migmate", "node_modules", "__pycache__":
		return true
	}
	return false
}
