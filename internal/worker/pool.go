package worker

import (
	"context"
	"sync"

	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

// Pool executes runners on a fixed number of workers, one job per worker
// slot for the job's whole downloading+transcoding span. The pool size is
// the primary concurrency limit; the resource gate's active-job check is a
// safety net against external load.
type Pool struct {
	cfg    *config.DownloadsConfig
	runner *Runner
	logger logger.Logger
	queue  chan string
	wg     sync.WaitGroup

	mu  sync.Mutex
	ctx context.Context
}

func NewPool(cfg *config.DownloadsConfig, runner *Runner, logger logger.Logger) *Pool {
	return &Pool{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		queue:  make(chan string, cfg.QueueSize),
	}
}

// Start launches the workers. They exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	p.logger.Infof("starting %d download workers", p.cfg.MaxConcurrent)
	for i := 0; i < p.cfg.MaxConcurrent; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, n int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.logger.Infof("worker %d shutting down", n)
			return
		case id := <-p.queue:
			p.runner.Run(ctx, id)
		}
	}
}

// Enqueue schedules a job without blocking the caller. When the buffered
// queue is full the handoff moves to a goroutine that gives up on shutdown.
func (p *Pool) Enqueue(id string) {
	select {
	case p.queue <- id:
	default:
		go func() {
			p.mu.Lock()
			ctx := p.ctx
			p.mu.Unlock()
			if ctx == nil {
				p.queue <- id
				return
			}
			select {
			case p.queue <- id:
			case <-ctx.Done():
			}
		}()
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}
