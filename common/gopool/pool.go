package gopool

import (
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	// Init a instance pool when importing ants.
	defaultPool, _   = ants.NewPool(ants.DefaultAntsPoolSize, ants.WithExpiryDuration(10*time.Second))
	minNumberPerTask = 5
)

// Submit submits a task to pool.
func Submit(task func()) error {
	return defaultPool.Submit(task)
}

// Running returns the number of the currently running goroutines.
func Running() int {
	return defaultPool.Running()
}

// Cap returns the capacity of this default pool.
func Cap() int {
	return defaultPool.Cap()
}

// Free returns the available goroutines to work.
func Free() int {
	return defaultPool.Free()
}

// Threads suggests a worker count for the given number of tasks, at least
// one and at most the number of CPUs.
func Threads(tasks int) int {
	threads := tasks / minNumberPerTask
	if threads > runtime.NumCPU() {
		threads = runtime.NumCPU()
	} else if threads == 0 {
		threads = 1
	}
	return threads
}

// Group runs tasks on a bounded pool and waits for them to finish.
type Group struct {
	pool  *ants.Pool
	owned bool
	wg    sync.WaitGroup
}

// NewGroup returns a group limited to size concurrent tasks. A size of zero
// or less shares the default pool.
func NewGroup(size int) (*Group, error) {
	if size <= 0 {
		return &Group{pool: defaultPool}, nil
	}
	pool, err := ants.NewPool(size, ants.WithExpiryDuration(10*time.Second))
	if err != nil {
		return nil, err
	}
	return &Group{pool: pool, owned: true}, nil
}

// Go schedules task, blocking while the pool is saturated.
func (g *Group) Go(task func()) error {
	g.wg.Add(1)
	err := g.pool.Submit(func() {
		defer g.wg.Done()
		task()
	})
	if err != nil {
		g.wg.Done()
	}
	return err
}

// Wait blocks until every scheduled task returned, then frees a private
// pool.
func (g *Group) Wait() {
	g.wg.Wait()
	if g.owned {
		g.pool.Release()
	}
}
