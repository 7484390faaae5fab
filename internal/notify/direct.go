// Package notify implements the delivery channels used by the fanout
// dispatcher.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/track-notifier/internal/fanout"
)

// DirectMessenger opens a direct conversation with a user and posts text.
type DirectMessenger interface {
	SendDirectMessage(ctx context.Context, userID, text string) error
}

// DirectMessage delivers notifications as chat direct messages.
type DirectMessage struct {
	messenger DirectMessenger
}

// NewDirectMessage returns a notifier that posts through m.
func NewDirectMessage(m DirectMessenger) *DirectMessage {
	return &DirectMessage{messenger: m}
}

// Notify posts the chat rendering of n to the recipient.
func (d *DirectMessage) Notify(ctx context.Context, n fanout.Notification) error {
	if n.Recipient.UserID == "" {
		return errors.New("direct message: recipient has no user ID")
	}
	if err := d.messenger.SendDirectMessage(ctx, n.Recipient.UserID, n.Text); err != nil {
		return fmt.Errorf("direct message to %s: %w", n.Recipient.UserID, err)
	}
	return nil
}
