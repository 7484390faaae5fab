package model

import "time"

// Announcement origins.
const (
	OriginSlack = "slack"
	OriginEmail = "email"
)

// Announcement is an inbound free-text message that may describe a task.
type Announcement struct {
	// ID uniquely identifies the message across retries
	// (e.g., "slack:C123:1712345678.000100" or "email:<message-id>").
	ID string `json:"id"`

	// Origin is the source that produced the message (OriginSlack, OriginEmail).
	Origin string `json:"origin"`

	// Channel is the conversation the message was posted in, if any.
	Channel string `json:"channel,omitempty"`

	// Timestamp is the platform message timestamp used for permalinks.
	Timestamp string `json:"ts,omitempty"`

	// User is the author of the message.
	User string `json:"user,omitempty"`

	// Text is the raw message body.
	Text string `json:"text"`

	// Subtype is set by the platform for edits, joins, bot posts, etc.
	Subtype string `json:"subtype,omitempty"`

	// BotID is set when the message was posted by a bot.
	BotID string `json:"bot_id,omitempty"`

	// Link is a precomputed link to the original message, if known.
	Link string `json:"link,omitempty"`

	// ReceivedAt is when the message reached this service.
	ReceivedAt time.Time `json:"received_at"`
}

// AnnouncementStatus records how processing of an announcement ended.
type AnnouncementStatus string

const (
	AnnouncementIgnoredSubtype  AnnouncementStatus = "ignored_subtype"
	AnnouncementNotAnnouncement AnnouncementStatus = "not_announcement"
	AnnouncementDuplicate       AnnouncementStatus = "duplicate"
	AnnouncementUnclassified    AnnouncementStatus = "unclassified"
	AnnouncementProcessing      AnnouncementStatus = "processing"
	AnnouncementDispatched      AnnouncementStatus = "dispatched"
	AnnouncementFailed          AnnouncementStatus = "failed"
)

// AnnouncementRecord is the persisted audit row for a processed announcement.
type AnnouncementRecord struct {
	ID          string             `json:"id" db:"id"`
	Origin      string             `json:"origin" db:"origin"`
	Channel     string             `json:"channel" db:"channel"`
	Track       string             `json:"track" db:"track"`
	Deadline    string             `json:"deadline" db:"deadline"`
	Status      AnnouncementStatus `json:"status" db:"status"`
	Recipients  int                `json:"recipients" db:"recipients"`
	Failures    int                `json:"failures" db:"failures"`
	ReceivedAt  time.Time          `json:"received_at" db:"received_at"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty" db:"processed_at"`
}
