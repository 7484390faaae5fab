package fanout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/summary"
)

type staticLister struct {
	subs []model.Subscriber
	err  error
}

func (l staticLister) ListSubscribers(context.Context) ([]model.Subscriber, error) {
	return l.subs, l.err
}

// recordingNotifier captures notifications and fails for selected users.
type recordingNotifier struct {
	mu     sync.Mutex
	sent   []Notification
	failOn map[string]error
	panics map[string]bool
	delay  time.Duration
	active atomic.Int32
	peak   atomic.Int32
}

func (n *recordingNotifier) Notify(ctx context.Context, note Notification) error {
	cur := n.active.Add(1)
	defer n.active.Add(-1)
	for {
		p := n.peak.Load()
		if cur <= p || n.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n.panics[note.Recipient.UserID] {
		panic("boom")
	}
	if err := n.failOn[note.Recipient.UserID]; err != nil {
		return err
	}

	n.mu.Lock()
	n.sent = append(n.sent, note)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for _, s := range n.sent {
		ids = append(ids, s.Recipient.UserID)
	}
	return ids
}

type memRecorder struct {
	mu         sync.Mutex
	deliveries []model.Delivery
	err        error
}

func (r *memRecorder) RecordDeliveries(_ context.Context, ds []model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, ds...)
	return r.err
}

func sub(id string, contact model.ContactMethod, email string, tracks ...model.Track) model.Subscriber {
	return model.Subscriber{UserID: id, Tracks: tracks, ContactMethod: contact, Email: email}
}

var testDoc = summary.Document{
	Title:        "New Backend Task Summary",
	Summary:      "Build it.",
	Deadline:     "Friday",
	Deliverables: []string{"Ship it"},
}

func TestMatch(t *testing.T) {
	subs := []model.Subscriber{
		sub("U1", model.ContactDirectMessage, "", "backend", "devops"),
		sub("U2", model.ContactDirectMessage, "", "frontend"),
		sub("U3", model.ContactDirectMessage, "", "devops"),
	}

	got := Match(subs, model.NewTrackSet("devops"))
	require.Len(t, got, 2)
	assert.Equal(t, "U1", got[0].UserID)
	assert.Equal(t, "U3", got[1].UserID)

	assert.Empty(t, Match(subs, model.NewTrackSet("data")))
	assert.Empty(t, Match(subs, model.NewTrackSet()))
}

func TestDispatchIsolatesFailures(t *testing.T) {
	subs := []model.Subscriber{
		sub("U1", model.ContactDirectMessage, "", "backend"),
		sub("U2", model.ContactDirectMessage, "", "backend"),
		sub("U3", model.ContactDirectMessage, "", "backend"),
		sub("U4", model.ContactDirectMessage, "", "frontend"),
	}
	dm := &recordingNotifier{
		failOn: map[string]error{"U2": errors.New("channel_not_found")},
	}
	rec := &memRecorder{}

	d := NewDispatcher(staticLister{subs: subs}, dm, Config{Concurrency: 2}, zap.NewNop(), WithRecorder(rec))
	report, err := d.Dispatch(context.Background(), "ann-1", model.NewTrackSet("backend"), testDoc, "https://example.slack.com/archives/C1/p1")
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 2, report.Delivered())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, "U2", report.Outcomes[1].UserID)
	assert.EqualError(t, report.Outcomes[1].Err, "channel_not_found")
	assert.ElementsMatch(t, []string{"U1", "U3"}, dm.recipients())

	require.Len(t, rec.deliveries, 3)
	assert.Equal(t, model.DeliveryFailed, rec.deliveries[1].Status)
	assert.Equal(t, "ann-1", rec.deliveries[0].AnnouncementID)
}

func TestDispatchRecoversNotifierPanic(t *testing.T) {
	subs := []model.Subscriber{
		sub("U1", model.ContactDirectMessage, "", "backend"),
		sub("U2", model.ContactDirectMessage, "", "backend"),
	}
	dm := &recordingNotifier{panics: map[string]bool{"U1": true}}

	d := NewDispatcher(staticLister{subs: subs}, dm, Config{}, zap.NewNop())
	report, err := d.Dispatch(context.Background(), "", model.NewTrackSet("backend"), testDoc, "")
	require.NoError(t, err)

	assert.Error(t, report.Outcomes[0].Err)
	assert.NoError(t, report.Outcomes[1].Err)
	assert.Equal(t, []string{"U2"}, dm.recipients())
}

func TestDispatchChannelSelection(t *testing.T) {
	subs := []model.Subscriber{
		sub("U1", model.ContactEmail, "a@example.com", "backend"),
		sub("U2", model.ContactEmail, "", "backend"),
		sub("U3", model.ContactDirectMessage, "c@example.com", "backend"),
	}

	t.Run("with email notifier", func(t *testing.T) {
		dm, mail := &recordingNotifier{}, &recordingNotifier{}
		d := NewDispatcher(staticLister{subs: subs}, dm, Config{}, zap.NewNop(), WithEmailNotifier(mail))

		report, err := d.Dispatch(context.Background(), "", model.NewTrackSet("backend"), testDoc, "")
		require.NoError(t, err)

		assert.Equal(t, []string{"U1"}, mail.recipients())
		assert.ElementsMatch(t, []string{"U2", "U3"}, dm.recipients())
		assert.Equal(t, model.ChannelEmail, report.Outcomes[0].Channel)
		assert.Equal(t, model.ChannelDirectMessage, report.Outcomes[1].Channel)
	})

	t.Run("without email notifier falls back to direct message", func(t *testing.T) {
		dm := &recordingNotifier{}
		d := NewDispatcher(staticLister{subs: subs}, dm, Config{}, zap.NewNop())

		_, err := d.Dispatch(context.Background(), "", model.NewTrackSet("backend"), testDoc, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"U1", "U2", "U3"}, dm.recipients())
	})
}

func TestDispatchBoundsConcurrencyAndTimeouts(t *testing.T) {
	var subs []model.Subscriber
	for i := 0; i < 10; i++ {
		subs = append(subs, sub(string(rune('A'+i)), model.ContactDirectMessage, "", "backend"))
	}

	t.Run("concurrency", func(t *testing.T) {
		dm := &recordingNotifier{delay: 20 * time.Millisecond}
		d := NewDispatcher(staticLister{subs: subs}, dm, Config{Concurrency: 3}, zap.NewNop())

		report, err := d.Dispatch(context.Background(), "", model.NewTrackSet("backend"), testDoc, "")
		require.NoError(t, err)
		assert.Equal(t, 10, report.Delivered())
		assert.LessOrEqual(t, dm.peak.Load(), int32(3))
	})

	t.Run("send timeout", func(t *testing.T) {
		dm := &recordingNotifier{delay: time.Second}
		d := NewDispatcher(staticLister{subs: subs[:2]}, dm, Config{SendTimeout: 20 * time.Millisecond}, zap.NewNop())

		report, err := d.Dispatch(context.Background(), "", model.NewTrackSet("backend"), testDoc, "")
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed())
		assert.ErrorIs(t, report.Outcomes[0].Err, context.DeadlineExceeded)
	})
}

func TestDispatchNoRecipients(t *testing.T) {
	dm := &recordingNotifier{}
	rec := &memRecorder{}
	d := NewDispatcher(staticLister{subs: []model.Subscriber{sub("U1", model.ContactDirectMessage, "", "frontend")}}, dm, Config{}, zap.NewNop(), WithRecorder(rec))

	report, err := d.Dispatch(context.Background(), "ann-2", model.NewTrackSet("backend"), testDoc, "")
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, dm.recipients())
	assert.Empty(t, rec.deliveries)
}

func TestDispatchListError(t *testing.T) {
	d := NewDispatcher(staticLister{err: errors.New("db locked")}, &recordingNotifier{}, Config{}, zap.NewNop())

	_, err := d.Dispatch(context.Background(), "", model.NewTrackSet("backend"), testDoc, "")
	assert.ErrorContains(t, err, "db locked")
}

func TestDispatchRecorderFailureIsIgnored(t *testing.T) {
	dm := &recordingNotifier{}
	rec := &memRecorder{err: errors.New("disk full")}
	d := NewDispatcher(staticLister{subs: []model.Subscriber{sub("U1", model.ContactDirectMessage, "", "backend")}}, dm, Config{}, zap.NewNop(), WithRecorder(rec))

	report, err := d.Dispatch(context.Background(), "ann-3", model.NewTrackSet("backend"), testDoc, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered())
}

func TestComposeMessage(t *testing.T) {
	text := ComposeMessage(testDoc, "https://x.slack.com/archives/C1/p1", "This was sent by Task Assistant")

	assert.True(t, strings.HasPrefix(text, "*New Backend Task Summary*"))
	assert.Contains(t, text, "<https://x.slack.com/archives/C1/p1|View original announcement>")
	assert.True(t, strings.HasSuffix(text, "_This was sent by Task Assistant_"))

	noLink := ComposeMessage(testDoc, "", "")
	assert.NotContains(t, noLink, "View original announcement")

	plain := ComposePlainMessage(testDoc, "https://x", "footer")
	assert.Contains(t, plain, "View original announcement: https://x")
	assert.NotContains(t, plain, "*")
}
