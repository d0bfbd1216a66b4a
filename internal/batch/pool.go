package batch

import (
	"context"
	"sync"
)

// workerPool runs submitted functions on a fixed number of goroutines.
type workerPool struct {
	submit chan func() // one of the workers picks each function
	wg     sync.WaitGroup
}

// newWorkerPool starts n workers. n below 1 is treated as 1.
func newWorkerPool(n int) *workerPool {
	if n < 1 {
		n = 1
	}
	p := &workerPool{submit: make(chan func())}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for fn := range p.submit {
		fn()
	}
}

// Submit hands fn to an idle worker, blocking until one is free. It returns
// false without running fn when ctx is done first.
func (p *workerPool) Submit(ctx context.Context, fn func()) bool {
	select {
	case <-ctx.Done():
		return false
	case p.submit <- fn:
		return true
	}
}

// Stop waits for running functions to finish and ends the workers.
// Submit must not be called afterwards.
func (p *workerPool) Stop() {
	close(p.submit)
	p.wg.Wait()
}
