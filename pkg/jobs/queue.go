package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExportJob asks the background exporter to republish one spreadsheet
// domain. Exports are full replacements, so a job carries no row data,
// only which domain to refresh and why.
type ExportJob struct {
	Domain   string
	Trigger  string
	Attempt  int
	Enqueued time.Time
}

// Handler republishes a single domain.
type Handler func(context.Context, ExportJob) error

// QueueConfig tunes the export worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// ExportQueue is an in-memory dispatcher for background spreadsheet
// exports. Mutating handlers enqueue fire-and-forget; workers push the
// refreshed dataset out of band so the HTTP response never waits on the
// spreadsheet API.
type ExportQueue struct {
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs chan ExportJob

	mu      sync.Mutex
	pending map[string]struct{}
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewExportQueue builds a queue around the given handler.
func NewExportQueue(handler Handler, cfg QueueConfig) *ExportQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &ExportQueue{
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan ExportJob, cfg.BufferSize),
		pending:    make(map[string]struct{}),
	}
}

// Start launches the workers. Safe to call once.
func (q *ExportQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("export queue started", "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *ExportQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("export queue stopped")
}

// Enqueue schedules a refresh of a domain. Because every export replaces
// the whole tab, a second request for a domain that is already queued is
// coalesced into the pending one.
func (q *ExportQueue) Enqueue(job ExportJob) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("export queue not started")
	}
	if _, dup := q.pending[job.Domain]; dup && job.Attempt == 0 {
		q.mu.Unlock()
		return nil
	}
	q.pending[job.Domain] = struct{}{}
	ctx := q.ctx
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		q.clearPending(job.Domain)
		return fmt.Errorf("export queue stopped: %w", ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *ExportQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.clearPending(job.Domain)
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *ExportQueue) clearPending(domain string) {
	q.mu.Lock()
	delete(q.pending, domain)
	q.mu.Unlock()
}

func (q *ExportQueue) handleFailure(job ExportJob, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("export job exceeded retries", "domain", job.Domain, "trigger", job.Trigger, "error", err)
		return
	}
	q.logger.Sugar().Warnw("export job failed, retrying", "domain", job.Domain, "attempt", job.Attempt, "error", err)

	go func(j ExportJob) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue export job", "domain", j.Domain, "error", err)
			}
		}
	}(job)
}
