// Package help is the console keyboard shortcut overlay.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/track-notifier/internal/keys"
	"github.com/nhle/track-notifier/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   k,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders the help overlay with a legend of announcement statuses.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	var legend []string
	for _, s := range []string{"dispatched", "processing", "unclassified", "failed"} {
		legend = append(legend, theme.AnnouncementStatusStyle(s).Render(s))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		helpText,
		"",
		titleStyle.Render("Announcement status"),
		lipgloss.JoinHorizontal(lipgloss.Top, joinSpaced(legend)...),
	)

	width, height := m.width-4, m.height-4
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return theme.PanelStyle.Width(width).Height(height).Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

func joinSpaced(parts []string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, "  ")
		}
		out = append(out, p)
	}
	return out
}
