// Package app is the operator console: a Bubble Tea program over the
// subscriber registry, processed announcements and their delivery logs.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/track-notifier/internal/keys"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/ui"
	"github.com/nhle/track-notifier/internal/ui/announcements"
	"github.com/nhle/track-notifier/internal/ui/deliveries"
	helpview "github.com/nhle/track-notifier/internal/ui/help"
	"github.com/nhle/track-notifier/internal/ui/subscribers"
)

// Store is everything the console reads. The console never modifies
// subscribers; registrations only change through the registration form.
type Store interface {
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
	ListAnnouncements(ctx context.Context, limit int) ([]model.AnnouncementRecord, error)
	GetAnnouncement(ctx context.Context, id string) (*model.AnnouncementRecord, error)
	ListDeliveries(ctx context.Context, announcementID string) ([]model.Delivery, error)
}

// ViewState represents the current active view in the console.
type ViewState int

const (
	ViewSubscribers ViewState = iota
	ViewAnnouncements
	ViewDeliveries
	ViewHelp
)

var tabs = []string{"Subscribers", "Announcements"}

// Model is the root Bubble Tea model that routes between views.
type Model struct {
	currentView   ViewState
	previousView  ViewState
	layout        ui.Layout
	keys          *keys.KeyMap
	subscribers   subscribers.Model
	announcements announcements.Model
	deliveries    deliveries.Model
	helpView      helpview.Model
	ready         bool
}

// New creates the console over s.
func New(s Store) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView:   ViewSubscribers,
		keys:          k,
		subscribers:   subscribers.New(s, k, 80, 24),
		announcements: announcements.New(s, k, 80, 24),
		deliveries:    deliveries.New(s, k, 80, 24),
		helpView:      helpview.New(k, 80, 24),
	}
}

// Run starts the console on the terminal and blocks until it quits.
func Run(ctx context.Context, s Store) error {
	p := tea.NewProgram(New(s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init loads both lists.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.subscribers.Init(), m.announcements.Init())
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.subscribers.SetSize(w, h)
		m.announcements.SetSize(w, h)
		m.deliveries.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m, nil

	// Data messages go to their owning view whichever view is active.
	case subscribers.LoadedMsg:
		m.subscribers, cmd = m.subscribers.Update(msg)
		return m, cmd

	case announcements.LoadedMsg:
		m.announcements, cmd = m.announcements.Update(msg)
		return m, cmd

	case deliveries.LoadedMsg:
		m.deliveries, cmd = m.deliveries.Update(msg)
		return m, cmd

	case announcements.SelectedMsg:
		m.currentView = ViewDeliveries
		return m, m.deliveries.Load(msg.ID)

	case deliveries.BackMsg:
		m.currentView = ViewAnnouncements
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if msg.String() == "ctrl+c" || m.currentView != ViewDeliveries {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}

		case key.Matches(msg, m.keys.NextTab):
			switch m.currentView {
			case ViewSubscribers:
				m.currentView = ViewAnnouncements
			case ViewAnnouncements, ViewDeliveries:
				m.currentView = ViewSubscribers
			}
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			if m.currentView != ViewHelp {
				return m, tea.Batch(m.subscribers.Load(), m.announcements.Load())
			}
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewSubscribers:
		m.subscribers, cmd = m.subscribers.Update(msg)
	case ViewAnnouncements:
		m.announcements, cmd = m.announcements.Update(msg)
	case ViewDeliveries:
		m.deliveries, cmd = m.deliveries.Update(msg)
	}

	return m, cmd
}

// View renders the full console using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(tabs, m.activeTab(), m.summary())
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSubscribers:
		return m.subscribers.View()
	case ViewAnnouncements:
		return m.announcements.View()
	case ViewDeliveries:
		return m.deliveries.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

func (m Model) activeTab() int {
	view := m.currentView
	if view == ViewHelp {
		view = m.previousView
	}
	if view == ViewSubscribers {
		return 0
	}
	return 1
}

func (m Model) summary() string {
	return fmt.Sprintf("%d subscribers | %d announcements",
		m.subscribers.Len(), m.announcements.Len())
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDeliveries:
		return "esc back | j/k scroll | tab subscribers | ctrl+c quit"
	case ViewAnnouncements:
		return "enter deliveries | tab switch | r refresh | ? help | q quit"
	default:
		return "tab switch | r refresh | ? help | q quit"
	}
}
