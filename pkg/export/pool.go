package export

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/houston-tools/unityFileTools/pkg/archive"
)

// Func processes one opened archive read from path.
type Func func(ctx context.Context, path string, a *archive.Archive) error

// Each opens every archive in paths and calls fn on it, with at most workers
// archives open at once. An archive that fails to open or process is logged
// and skipped. Each returns the number of skipped archives, and a non-nil
// error only when ctx is done.
func Each(ctx context.Context, logger *slog.Logger, paths []string, workers int, fn Func) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	var failed atomic.Int64
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := process(gctx, path, fn); err != nil {
				failed.Add(1)
				logger.Warn("archive failed, skipping", "archive", path, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(failed.Load()), err
	}
	return int(failed.Load()), ctx.Err()
}

func process(ctx context.Context, path string, fn Func) error {
	a, err := archive.OpenFile(path)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, path, a)
}
