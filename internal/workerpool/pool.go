// Package workerpool runs flow executions on a fixed set of goroutines so
// request handlers never block on them.
package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/domain"
)

// Job is a unit of work. ctx is the pool's own context: it outlives the
// request that submitted the job and is cancelled only when Close gives up.
type Job func(ctx context.Context)

type task struct {
	name string
	fn   Job
}

// Pool is a bounded worker pool with a bounded queue.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	workers int
	active  atomic.Int64
	done    atomic.Int64
	panics  atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New starts workers goroutines reading from a queue of the given capacity.
func New(workers, queue int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:   make(chan task, queue),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logging.NewNop(),
		workers: workers,
	}
	for _, opt := range opts {
		opt(p)
	}
	for id := range workers {
		p.wg.Add(1)
		go p.worker(id)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	logger := p.logger.With("worker", id)
	logger.Debug("worker started")
	for t := range p.tasks {
		p.run(logger, t)
	}
	logger.Debug("worker finished")
}

func (p *Pool) run(logger *slog.Logger, t task) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.done.Add(1)
		if r := recover(); r != nil {
			p.panics.Add(1)
			logger.Error("job panicked", "job", t.name, "panic", fmt.Sprint(r))
		}
	}()
	logger.Debug("job picked up", "job", t.name)
	t.fn(p.ctx)
}

// Submit queues fn without blocking. It returns domain.ErrPoolSaturated when
// the queue is full and domain.ErrPoolClosed after Close.
func (p *Pool) Submit(name string, fn Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ErrPoolClosed
	}
	select {
	case p.tasks <- task{name: name, fn: fn}:
		return nil
	default:
		p.logger.Warn("pool saturated, job rejected", "job", name, "queued", len(p.tasks))
		return domain.ErrPoolSaturated
	}
}

// Close stops accepting jobs and waits for queued and running jobs to finish.
// If ctx ends first the pool context is cancelled and ctx's error returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-finished
		return ctx.Err()
	}
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int
	Queued    int
	Active    int
	Completed int64
	Panics    int64
}

// Stats reports current load.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.tasks),
		Active:    int(p.active.Load()),
		Completed: p.done.Load(),
		Panics:    p.panics.Load(),
	}
}
