package governor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ForEachGroup calls fn for every item, running at most size calls at once.
// Items are processed in consecutive groups; each group is joined before the next starts.
// fn must not fail: per-item errors are the caller's to record. ForEachGroup returns
// early only when ctx is done, with ctx.Err().
func ForEachGroup[T any](ctx context.Context, items []T, size int, fn func(ctx context.Context, index int, item T)) error {
	if size <= 0 {
		size = len(items)
	}
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				fn(ctx, i, items[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return nil
}

// Pace sleeps for d unless ctx is done first.
func Pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
