package executor

import (
	"runtime"
	"sync"
)

// WorkerPool provides generic parallel execution with a fixed worker
// count: a job-channel fan-out over N goroutines, order-preserving by
// index.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool. workerCount <= 0 selects runtime.NumCPU().
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{workerCount: workerCount}
}

// Run invokes fn(i) for every i in [0, n), across the pool's worker
// goroutines, and returns the error from the lowest-indexed failing call,
// if any. Every call to fn runs regardless of earlier failures — the pool
// does not cancel in-flight work on first error — so an expansion or
// aggregation point that follows can safely wait for every item.
func (p *WorkerPool) Run(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}

	errs := make([]error, n)
	jobs := make(chan int, n)

	var wg sync.WaitGroup
	workers := p.workerCount
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				errs[idx] = fn(idx)
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
