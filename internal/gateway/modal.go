package gateway

import (
	"errors"
	"strings"

	"github.com/slack-go/slack"

	"github.com/nhle/track-notifier/internal/registration"
	"github.com/nhle/track-notifier/internal/track"
)

// Registration modal identifiers.
const (
	RegistrationCallbackID = "register_track_modal"

	TrackBlockID    = "track_select"
	TrackActionID   = "track_selected"
	ContactBlockID  = "contact_input"
	ContactActionID = "contact_selected"
	EmailBlockID    = "email_block"
	EmailActionID   = "email_input"
)

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

// RegistrationModal builds the form listing every track in catalog.
// channel is stored as private metadata.
func RegistrationModal(catalog *track.Catalog, channel string) slack.ModalViewRequest {
	var trackOptions []*slack.OptionBlockObject
	for _, t := range catalog.Tracks() {
		trackOptions = append(trackOptions, slack.NewOptionBlockObject(string(t), plain(catalog.Label(t)), nil))
	}

	tracks := &slack.InputBlock{
		Type:    slack.MBTInput,
		BlockID: TrackBlockID,
		Label:   plain("Select your tracks"),
		Element: slack.NewOptionsMultiSelectBlockElement(
			slack.MultiOptTypeStatic, plain("Choose one or more tracks"), TrackActionID, trackOptions...,
		),
	}

	contact := &slack.InputBlock{
		Type:    slack.MBTInput,
		BlockID: ContactBlockID,
		Label:   plain("Contact method"),
		Element: slack.NewOptionsSelectBlockElement(
			slack.OptTypeStatic, plain("How do you want to be contacted?"), ContactActionID,
			slack.NewOptionBlockObject("direct_message", plain("Slack DM"), nil),
			slack.NewOptionBlockObject("email", plain("Email (provide below)"), nil),
		),
	}

	email := &slack.InputBlock{
		Type:     slack.MBTInput,
		BlockID:  EmailBlockID,
		Label:    plain("Email (optional)"),
		Optional: true,
		Element:  slack.NewPlainTextInputBlockElement(plain("you@example.com"), EmailActionID),
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      RegistrationCallbackID,
		Title:           plain("Register Track"),
		Submit:          plain("Save"),
		Close:           plain("Cancel"),
		PrivateMetadata: channel,
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{tracks, contact, email},
		},
	}
}

// ParseRegistration reads the submitted registration form. Missing
// fields are left empty for the registration service to reject.
func ParseRegistration(cb *slack.InteractionCallback) registration.Input {
	in := registration.Input{UserID: cb.User.ID}
	if cb.View.State == nil {
		return in
	}
	values := cb.View.State.Values

	if action, ok := values[TrackBlockID][TrackActionID]; ok {
		for _, opt := range action.SelectedOptions {
			in.Tracks = append(in.Tracks, opt.Value)
		}
		// Older single-select forms.
		if len(in.Tracks) == 0 && action.SelectedOption.Value != "" {
			in.Tracks = append(in.Tracks, action.SelectedOption.Value)
		}
	}
	if action, ok := values[ContactBlockID][ContactActionID]; ok {
		in.ContactMethod = action.SelectedOption.Value
	}
	if action, ok := values[EmailBlockID][EmailActionID]; ok {
		in.Email = strings.TrimSpace(action.Value)
	}
	return in
}

// FormErrors maps a registration validation error onto the modal block
// that should display it. Other errors yield nil.
func FormErrors(err error) map[string]string {
	var verr *registration.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}

	block := TrackBlockID
	switch verr.Field {
	case registration.FieldContact:
		block = ContactBlockID
	case registration.FieldEmail:
		block = EmailBlockID
	}
	return map[string]string{block: verr.Message}
}
