// Package refresh runs stale-while-revalidate refreshes off the request path.
//
// A Pool is a fixed set of workers fed by a bounded queue. Schedule never
// blocks: when the queue is full, the key already has a refresh pending, or
// the pool is closed, the task is dropped and OnDrop is told why.
package refresh

import (
	"context"
	"sync"
	"time"
)

const (
	DropQueueFull = "queue_full"
	DropDuplicate = "duplicate"
	DropClosed    = "closed"
)

type Task struct {
	Endpoint string
	Key      string
	FreshTTL time.Duration
	StaleTTL time.Duration
}

type Handler func(ctx context.Context, t Task) error

type Options struct {
	Workers int           // 0 => 2
	Queue   int           // 0 => 256
	Timeout time.Duration // per task; 0 => none

	OnError func(t Task, err error)
	OnDrop  func(t Task, reason string)
}

type Pool struct {
	handle Handler
	opts   Options

	q      chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
	once    sync.Once
}

func New(h Handler, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Queue <= 0 {
		opts.Queue = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		handle:  h,
		opts:    opts,
		q:       make(chan Task, opts.Queue),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.work()
	}
	return p
}

// Schedule enqueues t and reports whether it was accepted.
func (p *Pool) Schedule(t Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.drop(t, DropClosed)
		return false
	}
	if _, ok := p.pending[t.Key]; ok {
		p.drop(t, DropDuplicate)
		return false
	}
	select {
	case p.q <- t:
		p.pending[t.Key] = struct{}{}
		return true
	default:
		p.drop(t, DropQueueFull)
		return false
	}
}

func (p *Pool) drop(t Task, reason string) {
	if p.opts.OnDrop != nil {
		p.opts.OnDrop(t, reason)
	}
}

// Pending is the number of keys queued or running.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Pool) work() {
	defer p.wg.Done()
	for t := range p.q {
		p.run(t)
		p.mu.Lock()
		delete(p.pending, t.Key)
		p.mu.Unlock()
	}
}

func (p *Pool) run(t Task) {
	ctx := p.ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	if err := p.handle(ctx, t); err != nil && p.opts.OnError != nil {
		p.opts.OnError(t, err)
	}
}

// Close stops intake and waits for queued tasks to finish. If ctx ends
// first, running tasks are cancelled and Close returns ctx.Err().
func (p *Pool) Close(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.q)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
			p.cancel()
			<-done
		}
		p.cancel()
	})
	return err
}
