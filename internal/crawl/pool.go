package crawl

import (
	"context"
	"sync"
)

// job is one unit of work; index is its position in the submission order
type job struct {
	index int
	run   func(ctx context.Context) *Result
}

// pool runs jobs on a fixed number of workers and returns results in
// submission order
type pool struct {
	workers int
	jobs    chan job
	results []*Result
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func newPool(workers, size int) *pool {
	if workers <= 0 {
		workers = 1
	}
	return &pool{
		workers: workers,
		jobs:    make(chan job, workers*2),
		results: make([]*Result, size),
	}
}

func (p *pool) start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for j := range p.jobs {
		result := j.run(ctx)
		p.mu.Lock()
		p.results[j.index] = result
		p.mu.Unlock()
	}
}

func (p *pool) submit(j job) {
	p.jobs <- j
}

// wait closes the queue and blocks until every submitted job has finished.
// Jobs observe ctx themselves, so cancellation drains the queue quickly.
func (p *pool) wait() []*Result {
	close(p.jobs)
	p.wg.Wait()
	return p.results
}
