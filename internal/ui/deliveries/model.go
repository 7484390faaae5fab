// Package deliveries is the console view showing one announcement and
// its delivery log.
package deliveries

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/track-notifier/internal/keys"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/theme"
)

// Store is the persistence the view reads.
type Store interface {
	GetAnnouncement(ctx context.Context, id string) (*model.AnnouncementRecord, error)
	ListDeliveries(ctx context.Context, announcementID string) ([]model.Delivery, error)
}

// BackMsg signals the parent to navigate back to the announcement list.
type BackMsg struct{}

// LoadedMsg carries an announcement and its delivery log.
type LoadedMsg struct {
	Record     *model.AnnouncementRecord
	Deliveries []model.Delivery
	Err        error
}

// Model is the delivery detail view.
type Model struct {
	record     *model.AnnouncementRecord
	deliveries []model.Delivery
	err        error
	viewport   viewport.Model
	store      Store
	keys       *keys.KeyMap
	width      int
	height     int
	loading    bool
}

// New creates a delivery detail view.
func New(s Store, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		store:    s,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Load marks the view as loading and returns a command that reads the
// announcement id and its deliveries.
func (m *Model) Load(id string) tea.Cmd {
	m.loading = true
	s := m.store
	return func() tea.Msg {
		ctx := context.Background()
		rec, err := s.GetAnnouncement(ctx, id)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		ds, err := s.ListDeliveries(ctx, id)
		return LoadedMsg{Record: rec, Deliveries: ds, Err: err}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.record = msg.Record
		m.deliveries = msg.Deliveries
		m.err = msg.Err
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
	}

	// Delegate to viewport for scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return placeholder.Render("Loading deliveries...")
	case m.err != nil:
		return theme.ErrorStyle.Render("error: " + m.err.Error())
	case m.record == nil:
		return placeholder.Render("No announcement selected")
	}
	return m.viewport.View()
}

// renderContent builds the detail text for the viewport.
func (m Model) renderContent() string {
	if m.record == nil {
		return ""
	}
	rec := m.record

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(rec.ID))
	b.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "%-10s %s\n", label+":", value)
	}
	field("Status", theme.AnnouncementStatusStyle(string(rec.Status)).Render(string(rec.Status)))
	field("Origin", rec.Origin)
	field("Channel", rec.Channel)
	field("Track", rec.Track)
	field("Deadline", rec.Deadline)
	field("Received", rec.ReceivedAt.Local().Format("2006-01-02 15:04:05"))
	if rec.ProcessedAt != nil {
		field("Processed", rec.ProcessedAt.Local().Format("2006-01-02 15:04:05"))
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("Deliveries (%d)", len(m.deliveries))))
	b.WriteString("\n")
	if len(m.deliveries) == 0 {
		b.WriteString(theme.HelpStyle.Render("none"))
		b.WriteString("\n")
	}
	for _, d := range m.deliveries {
		line := fmt.Sprintf("  %-12s %-15s %s",
			d.UserID, d.Channel, theme.DeliveryStyle(d.Status).Render(d.Status))
		if d.Error != "" {
			line += "  " + theme.HelpStyle.Render(d.Error)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.record != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
