package localdce

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bnb-chain/dexdce/common/gopool"
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/log"
)

// BatchConfig tunes RunBatch.
type BatchConfig struct {
	Workers  int    // concurrent methods; 0 picks a size from the method count
	LogEvery uint32 // progress log period in methods; 0 logs every method
}

// BatchResult holds per-method and merged statistics.
type BatchResult struct {
	Total     Stats
	PerMethod []Stats // aligned with the input methods
}

// RunBatch optimizes every method in place on the shared goroutine pool.
// Each method gets its own pass from newDce, so passes are never shared
// between goroutines. A malformed method aborts the batch with an error
// naming it.
func RunBatch(methods []*cfg.Method, newDce func() *LocalDce, config BatchConfig) (*BatchResult, error) {
	start := time.Now()
	workers := config.Workers
	if workers <= 0 {
		workers = gopool.Threads(len(methods))
	}
	group, err := gopool.NewGroup(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}

	var (
		res      = &BatchResult{PerMethod: make([]Stats, len(methods))}
		progress = log.NewEveryN(config.LogEvery)
		mu       sync.Mutex
		failure  error
	)
	for i, m := range methods {
		i, m := i, m
		err := group.Go(func() {
			if err := runOne(m, newDce(), &res.PerMethod[i]); err != nil {
				mu.Lock()
				if failure == nil {
					failure = err
				}
				mu.Unlock()
				return
			}
			log.DebugBy(progress, "Optimizing methods", "done", progress.Count(), "total", len(methods), "last", m.Ref)
		})
		if err != nil {
			group.Wait()
			return nil, errors.Wrap(err, "schedule method")
		}
	}
	group.Wait()
	if failure != nil {
		return nil, failure
	}

	for _, st := range res.PerMethod {
		res.Total.Add(st)
	}
	publish(res.Total, len(methods))
	batchTimer.UpdateSince(start)
	log.Info("Optimized methods", "methods", len(methods), "workers", workers,
		"dead", res.Total.DeadInstructions, "unreachable", res.Total.UnreachableInstructions,
		"npe", res.Total.NpeInstructions, "elapsed", time.Since(start))
	return res, nil
}

func runOne(m *cfg.Method, d *LocalDce, out *Stats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("method %s: %v", m.Ref, r)
		}
	}()
	if m.Graph == nil {
		return errors.Errorf("method %s has no body", m.Ref)
	}
	*out = d.DceMethod(m)
	return nil
}
