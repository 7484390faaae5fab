package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/store"
	"github.com/nhle/track-notifier/internal/ui/announcements"
	"github.com/nhle/track-notifier/internal/ui/deliveries"
	"github.com/nhle/track-notifier/tests/testutil"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd one level deep and feeds the resulting messages back
// into m, discarding follow-up commands.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = run(t, m, c)
		}
		return m
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

// send delivers msg to m and returns the new model and command.
func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func seed(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertSubscriber(ctx, model.Subscriber{
		UserID:        "U1",
		Tracks:        []model.Track{"backend"},
		ContactMethod: model.ContactDirectMessage,
	})
	require.NoError(t, err)
	_, err = s.UpsertSubscriber(ctx, model.Subscriber{
		UserID:        "U2",
		Tracks:        []model.Track{"frontend"},
		ContactMethod: model.ContactEmail,
		Email:         "u2@example.com",
	})
	require.NoError(t, err)

	ok, err := s.MarkAnnouncement(ctx, model.Announcement{ID: "slack:C1:1.0", Origin: model.OriginSlack, Channel: "C1"})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.CompleteAnnouncement(ctx, model.AnnouncementRecord{
		ID:         "slack:C1:1.0",
		Track:      "backend",
		Status:     model.AnnouncementDispatched,
		Recipients: 1,
	}))
	require.NoError(t, s.RecordDeliveries(ctx, []model.Delivery{{
		AnnouncementID: "slack:C1:1.0",
		UserID:         "U1",
		Channel:        model.ChannelDirectMessage,
		Status:         model.DeliveryDelivered,
	}}))
	return s
}

func newLoaded(t *testing.T, s Store) Model {
	t.Helper()
	m := New(s)
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return run(t, m, m.Init())
}

func TestInitLoadsBothLists(t *testing.T) {
	m := newLoaded(t, seed(t))

	assert.Equal(t, 2, m.subscribers.Len())
	assert.Equal(t, 1, m.announcements.Len())
	assert.Contains(t, m.View(), "2 subscribers | 1 announcements")
}

func TestViewBeforeWindowSize(t *testing.T) {
	assert.Equal(t, "Loading...", New(testutil.NewTestStore(t)).View())
}

func TestTabSwitchesViews(t *testing.T) {
	m := newLoaded(t, seed(t))
	require.Equal(t, ViewSubscribers, m.CurrentView())

	m, _ = send(m, keyPress("tab"))
	assert.Equal(t, ViewAnnouncements, m.CurrentView())

	m, _ = send(m, keyPress("tab"))
	assert.Equal(t, ViewSubscribers, m.CurrentView())
}

func TestHelpToggle(t *testing.T) {
	m := newLoaded(t, seed(t))

	m, _ = send(m, keyPress("?"))
	assert.Equal(t, ViewHelp, m.CurrentView())
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = send(m, keyPress("?"))
	assert.Equal(t, ViewSubscribers, m.CurrentView())
}

func TestSubscriberListIsReadOnly(t *testing.T) {
	s := seed(t)
	m := newLoaded(t, s)

	// Former destructive keys fall through to list navigation only.
	for _, k := range []string{"d", "y", "x"} {
		var cmd tea.Cmd
		m, cmd = send(m, keyPress(k))
		m = run(t, m, cmd)
	}
	assert.Equal(t, 2, m.subscribers.Len())
	assert.NotContains(t, m.View(), "remove")

	all, err := s.ListSubscribers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRefreshPicksUpNewRegistrations(t *testing.T) {
	s := seed(t)
	m := newLoaded(t, s)
	require.Equal(t, 2, m.subscribers.Len())

	_, err := s.UpsertSubscriber(context.Background(), model.Subscriber{
		UserID:        "U3",
		Tracks:        []model.Track{"devops"},
		ContactMethod: model.ContactDirectMessage,
	})
	require.NoError(t, err)

	m, cmd := send(m, keyPress("r"))
	m = run(t, m, cmd)
	assert.Equal(t, 3, m.subscribers.Len())
}

func TestOpenDeliveries(t *testing.T) {
	m := newLoaded(t, seed(t))

	m, _ = send(m, keyPress("tab"))
	m, cmd := send(m, keyPress("enter"))
	require.NotNil(t, cmd)

	selected, ok := cmd().(announcements.SelectedMsg)
	require.True(t, ok)
	assert.Equal(t, "slack:C1:1.0", selected.ID)

	m, cmd = send(m, selected)
	assert.Equal(t, ViewDeliveries, m.CurrentView())
	assert.Contains(t, m.View(), "Loading deliveries")

	m = run(t, m, cmd)
	view := m.View()
	assert.Contains(t, view, "slack:C1:1.0")
	assert.Contains(t, view, "U1")
	assert.Contains(t, view, "delivered")

	// q does not quit from the detail view; esc goes back.
	_, cmd = send(m, keyPress("q"))
	if cmd != nil {
		assert.NotEqual(t, tea.Quit(), cmd())
	}
	m, cmd = send(m, keyPress("esc"))
	require.NotNil(t, cmd)
	_, ok = cmd().(deliveries.BackMsg)
	require.True(t, ok)
	m, _ = send(m, deliveries.BackMsg{})
	assert.Equal(t, ViewAnnouncements, m.CurrentView())
}

func TestQuit(t *testing.T) {
	m := newLoaded(t, seed(t))

	_, cmd := send(m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

type failingStore struct {
	Store
}

func (failingStore) ListSubscribers(context.Context) ([]model.Subscriber, error) {
	return nil, assert.AnError
}

func (failingStore) ListAnnouncements(context.Context, int) ([]model.AnnouncementRecord, error) {
	return nil, assert.AnError
}

func TestLoadErrorsAreShown(t *testing.T) {
	m := newLoaded(t, failingStore{})

	assert.Contains(t, m.View(), assert.AnError.Error())
	m, _ = send(m, keyPress("tab"))
	assert.Contains(t, m.View(), assert.AnError.Error())
}
