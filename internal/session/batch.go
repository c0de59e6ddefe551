package session

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/logging"
	"github.com/sanadlab/migmate/model"
)

// BuildChanges diffs every pair concurrently. A pair that fails to diff is returned in skipped and never stops the others; the error is non-nil only when ctx
// ends first. Changes come back in input order.
func BuildChanges(ctx context.Context, pairs []model.ContentPair, opts Options) ([]*model.MigrationChange, map[string]error, error) {
	logger := logging.OrNop(opts.Logger)
	results := make([]*model.MigrationChange, len(pairs))
	errs := make([]error, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = hunk.Build(p.Identity, p.Original, p.Updated, opts.Hunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	changes := make([]*model.MigrationChange, 0, len(pairs))
	skipped := make(map[string]error)
	seen := make(map[string]bool, len(pairs))
	for i, p := range pairs {
		switch {
		case seen[p.Identity]:
			skipped[p.Identity] = fmt.Errorf("%s: duplicate content pair", p.Identity)
		case errs[i] != nil:
			skipped[p.Identity] = errs[i]
			logger.Debug("skipping file", zap.String("file", p.Identity), zap.Error(errs[i]))
		default:
			changes = append(changes, results[i])
			logger.Debug("hunks computed", zap.String("file", p.Identity), zap.Int("hunks", len(results[i].Hunks)))
		}
		seen[p.Identity] = true
	}
	return changes, skipped, nil
}

// SortedSkipped returns the identities of skipped in order.
func SortedSkipped(skipped map[string]error) []string {
	ids := make([]string, 0, len(skipped))
	for id := range skipped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
