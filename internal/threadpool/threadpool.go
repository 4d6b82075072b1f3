// Package threadpool implements the search's worker pool: N OS
// goroutines pre-spawned once at startup and re-dispatched for every
// "go" command, rather than spawned fresh per search the way the
// teacher engine's workerSearch did. Workers block on a sync.Cond
// start latch between searches and are released together when Start
// is called; the main thread joins them with golang.org/x/sync/errgroup
// so a worker panic surfaces as an error instead of crashing silently.
package threadpool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// WorkerFunc is the function each worker runs for one search cycle. id
// is the worker's index; by convention index 0 is the main worker that
// owns time checks, UCI output and the stop decision (spec.md §4.5).
// stop is the shared flag the worker must poll periodically and return
// from promptly once set.
type WorkerFunc func(id int, stop *atomic.Bool)

type cycleResult struct {
	generation uint64
	err        error
}

// Pool is a fixed set of long-lived worker goroutines.
type Pool struct {
	n int

	mu         sync.Mutex
	cond       *sync.Cond
	generation uint64
	work       WorkerFunc
	closed     bool

	stop atomic.Bool

	results chan cycleResult
}

// New spawns n long-lived worker goroutines, idle until the first
// call to Start. n is clamped to at least 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{n: n, results: make(chan cycleResult, n)}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < n; i++ {
		go p.loop(i)
	}
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return p.n }

// Stop sets the shared stop flag; every worker observes it at its next
// periodic check (the reference contract's "every 1024 nodes").
func (p *Pool) Stop() { p.stop.Store(true) }

// Stopped reports whether the stop flag is currently set.
func (p *Pool) Stopped() bool { return p.stop.Load() }

// Start dispatches work to every worker and blocks until all of them
// have returned, resetting the stop flag first so a previous search's
// stop doesn't leak into this one. It returns the first worker panic
// converted to an error, if any; a clean search returns nil.
func (p *Pool) Start(work WorkerFunc) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("threadpool: Start called after Close")
	}
	p.stop.Store(false)
	p.work = work
	p.generation++
	gen := p.generation
	p.cond.Broadcast()
	p.mu.Unlock()

	g := new(errgroup.Group)
	for i := 0; i < p.n; i++ {
		g.Go(func() error {
			for res := range p.results {
				if res.generation == gen {
					return res.err
				}
				// A result from a stale generation would mean Start was
				// called again before the previous cycle finished
				// joining, which callers must not do; drop it rather
				// than block forever.
			}
			return fmt.Errorf("threadpool: closed while waiting for cycle %d", gen)
		})
	}
	return g.Wait()
}

// Close releases every worker goroutine. The pool must not be used
// again afterward.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) loop(id int) {
	var lastGen uint64
	for {
		p.mu.Lock()
		for p.generation == lastGen && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		gen := p.generation
		work := p.work
		lastGen = gen
		p.mu.Unlock()

		p.results <- cycleResult{generation: gen, err: runWorker(id, work, &p.stop)}
	}
}

func runWorker(id int, work WorkerFunc, stop *atomic.Bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("threadpool: worker %d panicked: %v", id, r)
		}
	}()
	work(id, stop)
	return nil
}
