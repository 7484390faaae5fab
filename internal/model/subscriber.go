package model

import (
	"strings"
	"time"
)

// ContactMethod is how a subscriber wants to receive announcement summaries.
type ContactMethod string

const (
	ContactDirectMessage ContactMethod = "direct_message"
	ContactEmail         ContactMethod = "email"
)

// ParseContactMethod normalizes a contact method string. The legacy form
// value "slack" is accepted as an alias for direct messages.
func ParseContactMethod(s string) (ContactMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ContactDirectMessage), "slack", "dm":
		return ContactDirectMessage, true
	case string(ContactEmail):
		return ContactEmail, true
	default:
		return "", false
	}
}

// Subscriber is a registered recipient of announcement summaries.
type Subscriber struct {
	// UserID is the chat platform identifier of the subscriber. It is the
	// primary key: at most one record exists per user.
	UserID string `json:"user_id"`

	// Tracks is the non-empty set of tracks the subscriber follows,
	// kept in catalog order.
	Tracks []Track `json:"tracks"`

	// ContactMethod selects the delivery channel.
	ContactMethod ContactMethod `json:"contact_method"`

	// Email is the optional address used when ContactMethod is email.
	Email string `json:"email,omitempty"`

	// CreatedAt is when the subscriber first registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the registration was last replaced.
	UpdatedAt time.Time `json:"updated_at"`
}

// Follows reports whether the subscriber's track set intersects targets.
func (s Subscriber) Follows(targets TrackSet) bool {
	return targets.Intersects(s.Tracks)
}

// TrackNames returns the subscriber's tracks as plain strings.
func (s Subscriber) TrackNames() []string {
	names := make([]string, len(s.Tracks))
	for i, t := range s.Tracks {
		names[i] = string(t)
	}
	return names
}
