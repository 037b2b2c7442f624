package beatcraft

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool runs jobs on a fixed set of workers fed by a bounded queue. One
// worker runs one request from start to finish.
type Pool struct {
	jobs    chan job
	quit    chan struct{}
	drained chan struct{}
	workers int
	wg      sync.WaitGroup
	once    sync.Once
	log     Logger

	queued    int64
	running   int64
	completed int64
	failed    int64
	timedOut  int64
}

// NewPool starts workers goroutines (NumCPU-1 when <= 0) behind a queue
// of queueSize slots (twice the workers when <= 0).
func NewPool(workers, queueSize int, log Logger) *Pool {
	if workers <= 0 {
		workers = max(1, runtime.NumCPU()-1)
	}
	if queueSize <= 0 {
		queueSize = 2 * workers
	}

	p := &Pool{
		jobs:    make(chan job, queueSize),
		quit:    make(chan struct{}),
		drained: make(chan struct{}),
		workers: workers,
		log:     log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.worker(id)
		}(i)
	}
	return p
}

// Do queues fn and waits for it. If ctx ends while the queue is full the
// result is ErrQueueFull; if it ends while fn is queued or running the
// result is ctx.Err() and fn is expected to abandon its work.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case <-p.quit:
		return ErrClosed
	default:
	}

	atomic.AddInt64(&p.queued, 1)
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		atomic.AddInt64(&p.queued, -1)
		p.countTimeout(ctx.Err())
		return fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err())
	case <-p.quit:
		atomic.AddInt64(&p.queued, -1)
		return ErrClosed
	}

	return p.wait(ctx, j)
}

// wait blocks until j finishes, ctx ends, or the pool has shut down
// without picking j up.
func (p *Pool) wait(ctx context.Context, j job) error {
	select {
	case err := <-j.done:
		p.countTimeout(err)
		return err
	case <-ctx.Done():
		p.countTimeout(ctx.Err())
		return ctx.Err()
	case <-p.drained:
		select {
		case err := <-j.done:
			p.countTimeout(err)
			return err
		default:
			// Enqueued after Close drained the queue.
			atomic.AddInt64(&p.queued, -1)
			return ErrClosed
		}
	}
}

func (p *Pool) countTimeout(err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		atomic.AddInt64(&p.timedOut, 1)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			atomic.AddInt64(&p.queued, -1)
			p.run(id, j)
		}
	}
}

func (p *Pool) run(id int, j job) {
	// Abandoned while queued.
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}

	atomic.AddInt64(&p.running, 1)
	err := j.fn(j.ctx)
	atomic.AddInt64(&p.running, -1)

	switch {
	case err == nil:
		atomic.AddInt64(&p.completed, 1)
	case j.ctx.Err() != nil:
		// counted as a timeout by the caller
	default:
		atomic.AddInt64(&p.failed, 1)
		if p.log != nil {
			p.log.Debugf("worker %d: job failed: %v", id, err)
		}
	}
	j.done <- err
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    atomic.LoadInt64(&p.queued),
		Running:   atomic.LoadInt64(&p.running),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
		TimedOut:  atomic.LoadInt64(&p.timedOut),
	}
}

// Close stops the workers after their current job and fails anything
// still queued with ErrClosed.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
		p.wg.Wait()
		defer close(p.drained)
		for {
			select {
			case j := <-p.jobs:
				atomic.AddInt64(&p.queued, -1)
				j.done <- ErrClosed
			default:
				return
			}
		}
	})
}
