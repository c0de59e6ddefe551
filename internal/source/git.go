package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/sanadlab/migmate/model"
)

// GitSource pairs worktree files with their content at a revision. The worktree copy is the original and the revision's blob is the updated
// content, so with Ref "HEAD" the hunks selectively revert local edits, and with a migration branch they bring its changes in.
type GitSource struct {
	// Dir is any directory inside the repository.
	Dir string
	// Ref is a revision such as "HEAD", a branch or a commit hash.
	Ref    string
	Filter Filter
}

func (s *GitSource) Load(ctx context.Context) ([]model.ContentPair, error) {
	if err := s.Filter.Validate(); err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(s.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	commit, err := s.commit(repo)
	if err != nil {
		return nil, err
	}
	files, err := commit.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list files at %s: %w", s.ref(), err)
	}
	defer files.Close()

	var pairs []model.ContentPair
	err = files.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Filter.Match(f.Name) {
			return nil
		}
		if binary, err := f.IsBinary(); err != nil || binary {
			return nil
		}

		identity := filepath.Join(root, filepath.FromSlash(f.Name))
		original, err := os.ReadFile(identity)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", identity, err)
		}
		updated, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to read %s at %s: %w", f.Name, s.ref(), err)
		}
		if string(original) == updated {
			return nil
		}

		pairs = append(pairs, model.ContentPair{
			Identity: identity,
			Original: string(original),
			Updated:  updated,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *GitSource) ref() string {
	if s.Ref == "" {
		return "HEAD"
	}
	return s.Ref
}

func (s *GitSource) commit(repo *git.Repository) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(s.ref()))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", s.ref(), err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	return commit, nil
}
