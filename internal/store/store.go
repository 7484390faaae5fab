package store

import (
	"context"
	"errors"

	"github.com/nhle/track-notifier/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for subscribers, processed
// announcements and the delivery log.
type Store interface {
	// === Subscribers ===

	// UpsertSubscriber fully replaces the record for sub.UserID and
	// returns the stored row. CreatedAt survives replacement.
	UpsertSubscriber(ctx context.Context, sub model.Subscriber) (*model.Subscriber, error)
	GetSubscriber(ctx context.Context, userID string) (*model.Subscriber, error)
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)

	// === Announcements ===

	// MarkAnnouncement records a as being processed. It returns false
	// when an announcement with the same ID was already recorded.
	MarkAnnouncement(ctx context.Context, a model.Announcement) (bool, error)
	CompleteAnnouncement(ctx context.Context, rec model.AnnouncementRecord) error
	GetAnnouncement(ctx context.Context, id string) (*model.AnnouncementRecord, error)
	ListAnnouncements(ctx context.Context, limit int) ([]model.AnnouncementRecord, error)

	// === Deliveries ===

	RecordDeliveries(ctx context.Context, deliveries []model.Delivery) error
	ListDeliveries(ctx context.Context, announcementID string) ([]model.Delivery, error)

	Close() error
}
