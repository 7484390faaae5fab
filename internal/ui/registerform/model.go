// Package registerform is the terminal registration form: pick tracks,
// a contact method and an optional email address.
package registerform

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/registration"
	"github.com/nhle/track-notifier/internal/theme"
	"github.com/nhle/track-notifier/internal/track"
)

// SubmittedMsg is dispatched when the form completes.
type SubmittedMsg struct {
	Input registration.Input
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	tracks  []string
	contact string
	email   string
}

// Model is the Bubble Tea model for the registration form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	catalog *track.Catalog
	userID  string
	width   int
	height  int
}

// New creates a form for userID over the tracks of catalog. An existing
// registration, if any, pre-fills the fields.
func New(c *track.Catalog, userID string, existing *model.Subscriber) Model {
	fb := &formBindings{contact: string(model.ContactDirectMessage)}
	if existing != nil {
		fb.tracks = existing.TrackNames()
		fb.contact = string(existing.ContactMethod)
		fb.email = existing.Email
	}

	m := Model{
		fb:      fb,
		catalog: c,
		userID:  userID,
		width:   60,
		height:  20,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		in := m.Input()
		return m, func() tea.Msg { return SubmittedMsg{Input: in} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Track registration")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form = m.form.WithWidth(width).WithHeight(height)
}

// Input returns the current field values as a registration payload.
// Email is only carried for the email contact method.
func (m Model) Input() registration.Input {
	in := registration.Input{
		UserID:        m.userID,
		Tracks:        append([]string(nil), m.fb.tracks...),
		ContactMethod: m.fb.contact,
	}
	if m.fb.contact == string(model.ContactEmail) {
		in.Email = strings.TrimSpace(m.fb.email)
	}
	return in
}

// Run shows the form on the terminal and blocks until it is submitted or
// aborted. An abort returns huh.ErrUserAborted.
func (m Model) Run(ctx context.Context) (registration.Input, error) {
	if err := m.form.RunWithContext(ctx); err != nil {
		return registration.Input{}, err
	}
	return m.Input(), nil
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			m.trackField(),
			huh.NewSelect[string]().
				Title("Contact method").
				Options(
					huh.NewOption("Direct message", string(model.ContactDirectMessage)),
					huh.NewOption("Email", string(model.ContactEmail)),
				).
				Value(&fb.contact),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("name@example.com (optional)").
				Value(&fb.email).
				Validate(validateOptionalEmail),
		).WithHideFunc(func() bool {
			return fb.contact != string(model.ContactEmail)
		}),
	).WithWidth(m.width).WithHeight(m.height)
}

func (m *Model) trackField() huh.Field {
	tracks := m.catalog.Tracks()
	opts := make([]huh.Option[string], len(tracks))
	for i, t := range tracks {
		opts[i] = huh.NewOption(m.catalog.Label(t), string(t))
	}
	return huh.NewMultiSelect[string]().
		Title("Tracks").
		Options(opts...).
		Value(&m.fb.tracks).
		Validate(validateTracks)
}

func validateTracks(v []string) error {
	if len(v) == 0 {
		return errors.New("select at least one track")
	}
	return nil
}

func validateOptionalEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("not a valid email address")
	}
	return nil
}
