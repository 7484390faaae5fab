package model

import "time"

// Delivery channels.
const (
	ChannelDirectMessage = "direct_message"
	ChannelEmail         = "email"
)

// Delivery results.
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Delivery is the logged outcome of sending one summary to one subscriber.
type Delivery struct {
	// ID is the unique identifier for this delivery attempt.
	ID string `json:"id" db:"id"`

	// AnnouncementID links the delivery to the announcement it summarizes.
	AnnouncementID string `json:"announcement_id" db:"announcement_id"`

	// UserID is the recipient.
	UserID string `json:"user_id" db:"user_id"`

	// Channel is the delivery channel used (ChannelDirectMessage, ChannelEmail).
	Channel string `json:"channel" db:"channel"`

	// Status is DeliveryDelivered or DeliveryFailed.
	Status string `json:"status" db:"status"`

	// Error holds the failure message when Status is DeliveryFailed.
	Error string `json:"error,omitempty" db:"error"`

	// CreatedAt is when the attempt finished.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
