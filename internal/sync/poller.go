// Package sync polls announcement sources in the background and feeds
// what they return into the processing queue.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/metrics"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/source"
)

// SyncState represents the current state of a source sync operation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the sync state for a single source.
type SyncStatus struct {
	Source   string
	State    SyncState
	LastSync time.Time
	Fetched  int
	Error    error
}

// Submitter accepts announcements for processing.
type Submitter interface {
	Submit(a model.Announcement) bool
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

const defaultInterval = 120 * time.Second

// sourceEntry holds a registered source and its polling interval.
type sourceEntry struct {
	src      source.Source
	interval time.Duration
	trigger  chan struct{}
}

// Poller orchestrates background polling of registered sources.
type Poller struct {
	queue     Submitter
	logger    *zap.Logger
	sources   []sourceEntry
	statuses  map[string]*SyncStatus
	stopCh    chan struct{}
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	running   bool
}

// New creates a new Poller that submits to queue.
func New(queue Submitter, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		queue:     queue,
		logger:    logger,
		statuses:  make(map[string]*SyncStatus),
		stopCh:    make(chan struct{}),
	}
}

// RegisterSource adds a source polled every interval.
func (p *Poller) RegisterSource(src source.Source, interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if interval <= 0 {
		interval = defaultInterval
	}
	p.sources = append(p.sources, sourceEntry{
		src:      src,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	})
	p.statuses[src.Name()] = &SyncStatus{Source: src.Name(), State: SyncIdle}
}

// Start launches one polling goroutine per source. Each source is
// fetched immediately, then on its interval.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	for _, entry := range p.sources {
		p.wg.Add(1)
		go p.pollSource(ctx, entry)
	}
}

// Stop halts all polling goroutines and waits for in-flight fetches.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Refresh triggers an immediate poll of the named source.
func (p *Poller) Refresh(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.sources {
		if entry.src.Name() != name {
			continue
		}
		select {
		case entry.trigger <- struct{}{}:
		default:
			// A refresh is already pending.
		}
	}
}

// Statuses returns the current sync status of all registered sources.
func (p *Poller) Statuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		statuses = append(statuses, *s)
	}
	return statuses
}

func (p *Poller) pollSource(ctx context.Context, entry sourceEntry) {
	defer p.wg.Done()

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	p.fetchAndSubmit(ctx, entry.src)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndSubmit(ctx, entry.src)
		case <-entry.trigger:
			p.fetchAndSubmit(ctx, entry.src)
		}
	}
}

// fetchAndSubmit performs a single fetch and submits every announcement.
func (p *Poller) fetchAndSubmit(ctx context.Context, src source.Source) {
	name := src.Name()
	p.setStatus(name, SyncRunning, 0, nil)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	announcements, err := src.Fetch(ctx)

	submitted := 0
	for _, a := range announcements {
		if p.queue.Submit(a) {
			submitted++
		}
	}

	if err != nil {
		metrics.SourceFetches.WithLabelValues(name, "error").Inc()
		p.setStatus(name, SyncError, submitted, err)
		if source.IsAuthError(err) {
			p.logger.Error("source authentication failed", zap.String("source", name), zap.Error(err))
		} else {
			p.logger.Warn("source fetch failed", zap.String("source", name), zap.Error(err))
		}
		return
	}

	metrics.SourceFetches.WithLabelValues(name, "ok").Inc()
	p.setStatus(name, SyncIdle, submitted, nil)
	if submitted > 0 {
		p.logger.Info("source fetched announcements", zap.String("source", name), zap.Int("count", submitted))
	}
}

func (p *Poller) setStatus(name string, state SyncState, fetched int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[name]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state != SyncRunning {
		status.Fetched = fetched
	}
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}
