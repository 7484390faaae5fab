// Package subscribers is the read-only console view listing registered
// subscribers.
package subscribers

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/track-notifier/internal/keys"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/theme"
)

// Store is the persistence the view reads.
type Store interface {
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
}

// LoadedMsg carries a freshly loaded subscriber list.
type LoadedMsg struct {
	Subscribers []model.Subscriber
	Err         error
}

// Item wraps a model.Subscriber so it can be used in a bubbles/list.
type Item struct {
	Subscriber model.Subscriber
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return i.Subscriber.UserID }

// Title returns the subscriber's user ID.
func (i Item) Title() string { return i.Subscriber.UserID }

// Description returns tracks, contact method and last update.
func (i Item) Description() string {
	contact := string(i.Subscriber.ContactMethod)
	if i.Subscriber.Email != "" {
		contact += " <" + i.Subscriber.Email + ">"
	}
	parts := []string{
		strings.Join(i.Subscriber.TrackNames(), ", "),
		theme.ContactStyle(string(i.Subscriber.ContactMethod)).Render(contact),
		i.Subscriber.UpdatedAt.Local().Format("2006-01-02 15:04"),
	}
	return strings.Join(parts, " | ")
}

// Model is the subscriber list view.
type Model struct {
	list   list.Model
	store  Store
	keys   *keys.KeyMap
	err    error
	width  int
	height int
}

// New creates a subscriber list view.
func New(s Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), width, height-2)
	l.Title = "Subscribers"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  s,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init loads the subscriber list.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that reads every subscriber from the store.
func (m Model) Load() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		subs, err := s.ListSubscribers(context.Background())
		return LoadedMsg{Subscribers: subs, Err: err}
	}
}

// Update handles messages for the subscriber list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		items := make([]list.Item, len(msg.Subscribers))
		for i, sub := range msg.Subscribers {
			items[i] = Item{Subscriber: sub}
		}
		return m, m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Len returns the number of listed subscribers.
func (m Model) Len() int { return len(m.list.Items()) }

// View renders the subscriber list.
func (m Model) View() string {
	if m.err != nil {
		return theme.ErrorStyle.Render("error: " + m.err.Error())
	}
	if len(m.list.Items()) == 0 {
		return theme.HelpStyle.Render("No subscribers registered yet.")
	}
	return m.list.View()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
