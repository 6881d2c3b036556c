package formula

import (
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultBulkThreshold is the smallest bulk size evaluated in parallel by
// default.
const DefaultBulkThreshold = 1024

// chunksPerWorker is the number of chunks each worker handles on average, so
// that uneven work still balances.
const chunksPerWorker = 4

type bulkConfig struct {
	// workers is the maximum number of goroutines. Zero means GOMAXPROCS.
	workers int
	// threshold is the smallest size evaluated in parallel.
	threshold int
	log       zerolog.Logger
}

var defaultBulk = bulkConfig{threshold: DefaultBulkThreshold, log: zerolog.Nop()}

// EvalBulk evaluates the expression len(out) times, storing the i'th result
// in out[i]. Array variables contribute their i'th element; scalar variables
// are the same for every index. For an expression with several
// subexpressions, out receives the last of each.
//
// Large evaluations are split across goroutines, except for expressions
// that assign to variables, which always run in index order. If any
// evaluation fails, EvalBulk stops early and returns a *BulkError for the
// lowest failing index; elements of out at and after that index are
// unspecified.
func (pl *Plan) EvalBulk(out []float64) error {
	return pl.evalBulk(out, defaultBulk)
}

func (pl *Plan) evalBulk(out []float64, cfg bulkConfig) error {
	n := len(out)
	if n == 0 {
		return nil
	}
	if pl.shortest >= 0 && pl.shortest < n {
		return &BulkError{Index: pl.shortest, Err: ErrBulkSize}
	}
	workers := cfg.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n < cfg.threshold || workers == 1 || pl.prog.assigns {
		cfg.log.Debug().Int("size", n).Msg("bulk sequential")
		stack := make([]float64, pl.prog.depth)
		for i := range out {
			r, err := pl.prog.run(stack, i, 0)
			if err != nil {
				return &BulkError{Index: i, Err: err}
			}
			out[i] = r[len(r)-1]
		}
		return nil
	}

	size := max(1, (n+workers*chunksPerWorker-1)/(workers*chunksPerWorker))
	chunks := (n + size - 1) / size
	cfg.log.Debug().Int("size", n).Int("workers", workers).Int("chunks", chunks).Msg("bulk parallel")
	// failed is the lowest index known to fail. Chunks stop once they pass
	// it, but indices below it always run, so the lowest failure overall is
	// never skipped.
	var failed atomic.Int64
	failed.Store(int64(n))
	errs := make([]error, chunks)
	var g errgroup.Group
	g.SetLimit(workers)
	for c := range chunks {
		lo, hi := c*size, min(n, (c+1)*size)
		g.Go(func() error {
			stack := make([]float64, pl.prog.depth)
			for i := lo; i < hi; i++ {
				if int64(i) > failed.Load() {
					return nil
				}
				r, err := pl.prog.run(stack, i, c)
				if err != nil {
					errs[c] = &BulkError{Index: i, Err: err}
					lowerTo(&failed, int64(i))
					return nil
				}
				out[i] = r[len(r)-1]
			}
			return nil
		})
	}
	g.Wait()
	if f := failed.Load(); f < int64(n) {
		err := errs[int(f)/size]
		cfg.log.Debug().Err(err).Int64("index", f).Msg("bulk failed")
		return err
	}
	return nil
}

// lowerTo sets v to x if x is smaller.
func lowerTo(v *atomic.Int64, x int64) {
	for {
		cur := v.Load()
		if x >= cur || v.CompareAndSwap(cur, x) {
			return
		}
	}
}
