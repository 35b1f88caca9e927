package stadium

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Dispatch splits [0, count) into at most workers contiguous ranges of equal
// size (the last one may be shorter) and calls fn once per range, each on its
// own goroutine. It returns after every started range is finished. No range is
// started once ctx is cancelled; ranges already running are not interrupted.
//
// workers <= 0 uses GOMAXPROCS.
func Dispatch(ctx context.Context, count, workers int, fn func(start, end int)) error {
	if count <= 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, count)
	size := (count + workers - 1) / workers

	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < count; start += size {
		if ctx.Err() != nil {
			break
		}
		end := min(start+size, count)
		p.Go(func() {
			fn(start, end)
		})
	}
	p.Wait()
	return ctx.Err()
}
