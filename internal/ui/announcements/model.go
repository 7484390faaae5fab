// Package announcements is the console view listing processed
// announcements.
package announcements

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/track-notifier/internal/keys"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/theme"
)

// listLimit caps how many recent announcements are loaded.
const listLimit = 200

// Store is the persistence the view reads.
type Store interface {
	ListAnnouncements(ctx context.Context, limit int) ([]model.AnnouncementRecord, error)
}

// LoadedMsg carries freshly loaded announcement records.
type LoadedMsg struct {
	Records []model.AnnouncementRecord
	Err     error
}

// SelectedMsg is dispatched when the user opens an announcement.
type SelectedMsg struct {
	ID string
}

// Item wraps a model.AnnouncementRecord so it can be used in a bubbles/list.
type Item struct {
	Record model.AnnouncementRecord
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return i.Record.ID }

// Title returns the announcement ID.
func (i Item) Title() string { return i.Record.ID }

// Description returns status, track, delivery counts and receive time.
func (i Item) Description() string {
	tr := i.Record.Track
	if tr == "" {
		tr = "-"
	}
	parts := []string{
		theme.AnnouncementStatusStyle(string(i.Record.Status)).Render(string(i.Record.Status)),
		tr,
		fmt.Sprintf("%d sent, %d failed", i.Record.Recipients-i.Record.Failures, i.Record.Failures),
		i.Record.ReceivedAt.Local().Format("2006-01-02 15:04"),
	}
	return strings.Join(parts, " | ")
}

// Model is the announcement list view.
type Model struct {
	list   list.Model
	store  Store
	keys   *keys.KeyMap
	err    error
	width  int
	height int
}

// New creates an announcement list view.
func New(s Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), width, height-2)
	l.Title = "Announcements"
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

// Init loads the announcement list.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that reads recent announcements.
func (m Model) Load() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		recs, err := s.ListAnnouncements(context.Background(), listLimit)
		return LoadedMsg{Records: recs, Err: err}
	}
}

// Update handles messages for the announcement list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		items := make([]list.Item, len(msg.Records))
		for i, rec := range msg.Records {
			items[i] = Item{Record: rec}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			item, ok := m.list.SelectedItem().(Item)
			if !ok {
				return m, nil
			}
			id := item.Record.ID
			return m, func() tea.Msg { return SelectedMsg{ID: id} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Len returns the number of listed announcements.
func (m Model) Len() int { return len(m.list.Items()) }

// View renders the announcement list.
func (m Model) View() string {
	if m.err != nil {
		return theme.ErrorStyle.Render("error: " + m.err.Error())
	}
	if len(m.list.Items()) == 0 {
		return theme.HelpStyle.Render("No announcements processed yet.")
	}
	return m.list.View()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
