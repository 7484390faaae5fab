package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/metrics"
	"github.com/nhle/track-notifier/internal/model"
)

// Handler processes a single announcement.
type Handler interface {
	Process(ctx context.Context, a model.Announcement) (Result, error)
}

// Queue buffers announcements so inbound requests can be acknowledged
// before processing finishes.
type Queue struct {
	handler Handler
	workers int
	logger  *zap.Logger

	mu      sync.RWMutex
	ch      chan model.Announcement
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue creates a queue holding up to size pending announcements,
// drained by workers goroutines once started.
func NewQueue(h Handler, size, workers int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		handler: h,
		workers: workers,
		logger:  logger,
		ch:      make(chan model.Announcement, size),
	}
}

// Start launches the workers. The work context carries ctx's values but
// not its cancellation: announcements accepted before a shutdown signal
// still run to completion. Shutdown bounds how long that may take.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(workCtx)
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for a := range q.ch {
		q.process(ctx, a)
	}
}

func (q *Queue) process(ctx context.Context, a model.Announcement) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("announcement processing panicked",
				zap.String("announcement_id", a.ID),
				zap.Any("panic", r),
			)
		}
	}()

	if _, err := q.handler.Process(ctx, a); err != nil {
		q.logger.Error("processing announcement",
			zap.String("announcement_id", a.ID),
			zap.Error(err),
		)
	}
}

// Submit enqueues a without blocking. It returns false when the queue
// is full or stopped.
func (q *Queue) Submit(a model.Announcement) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.ch <- a:
		return true
	default:
		metrics.AnnouncementsDropped.Inc()
		q.logger.Warn("announcement queue full, dropping",
			zap.String("announcement_id", a.ID),
		)
		return false
	}
}

// Len returns the number of pending announcements.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Stop rejects new submissions and waits for pending announcements to
// be processed.
func (q *Queue) Stop() {
	_ = q.Shutdown(context.Background())
}

// Shutdown rejects new submissions and waits for pending announcements.
// If ctx ends first, in-flight work is cancelled and the error is
// returned once the workers have exited.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	started, cancel := q.started, q.cancel
	q.mu.Unlock()

	if !started {
		return nil
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return fmt.Errorf("draining announcement queue: %w", ctx.Err())
	}
}
