package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reel/internal/feed"
)

// Result pairs an item with its resolution outcome.
type Result struct {
	Item  feed.Item
	Media Media
	Err   error
}

// ResolveAll resolves items with at most limit in flight. Per-item
// failures land in Result.Err; only ctx cancellation aborts the batch.
// Results keep the order of items.
func ResolveAll(ctx context.Context, r Resolver, items []feed.Item, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 4
	}
	out := make([]Result, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := r.Resolve(gctx, it)
			out[i] = Result{Item: it, Media: m, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
