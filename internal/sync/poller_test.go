package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/source"
)

type fakeSource struct {
	name  string
	calls atomic.Int32
	batch []model.Announcement
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(context.Context) ([]model.Announcement, error) {
	f.calls.Add(1)
	return f.batch, f.err
}

type collectingQueue struct {
	mu  gosync.Mutex
	ids []string
}

func (q *collectingQueue) Submit(a model.Announcement) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, a.ID)
	return true
}

func (q *collectingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

func statusOf(p *Poller, name string) SyncStatus {
	for _, s := range p.Statuses() {
		if s.Source == name {
			return s
		}
	}
	return SyncStatus{}
}

func TestPollerSubmitsOnStart(t *testing.T) {
	q := &collectingQueue{}
	src := &fakeSource{name: "email", batch: []model.Announcement{{ID: "email:1"}, {ID: "email:2"}}}

	p := New(q, zap.NewNop())
	p.RegisterSource(src, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return q.count() == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return statusOf(p, "email").State == SyncIdle && !statusOf(p, "email").LastSync.IsZero() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, statusOf(p, "email").Fetched)
}

func TestPollerRefresh(t *testing.T) {
	q := &collectingQueue{}
	src := &fakeSource{name: "email"}

	p := New(q, zap.NewNop())
	p.RegisterSource(src, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	p.Refresh("email")
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	p.Refresh("unknown")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestPollerRecordsErrors(t *testing.T) {
	q := &collectingQueue{}
	src := &fakeSource{name: "email", err: &source.AuthError{Source: "email", Message: "bad password"}}

	p := New(q, zap.NewNop())
	p.RegisterSource(src, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return statusOf(p, "email").State == SyncError }, time.Second, 5*time.Millisecond)
	st := statusOf(p, "email")
	assert.True(t, source.IsAuthError(st.Error))
	assert.True(t, st.LastSync.IsZero())
}

func TestPollerSubmitsPartialResults(t *testing.T) {
	q := &collectingQueue{}
	src := &fakeSource{name: "email", batch: []model.Announcement{{ID: "email:1"}}, err: errors.New("marking messages seen")}

	p := New(q, zap.NewNop())
	p.RegisterSource(src, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return q.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPollerTicks(t *testing.T) {
	src := &fakeSource{name: "email"}
	p := New(&collectingQueue{}, nil)
	p.RegisterSource(src, 10*time.Millisecond)
	p.Start(context.Background())

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	calls := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load())
}

func TestSyncStateString(t *testing.T) {
	assert.Equal(t, "idle", SyncIdle.String())
	assert.Equal(t, "running", SyncRunning.String())
	assert.Equal(t, "error", SyncError.String())
}
