package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/track-notifier/internal/model"
)

// trackSeparator joins a subscriber's tracks in the tracks column.
const trackSeparator = ","

type subscriberRow struct {
	UserID        string         `db:"user_id"`
	Tracks        string         `db:"tracks"`
	ContactMethod string         `db:"contact_method"`
	Email         sql.NullString `db:"email"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r subscriberRow) toModel() model.Subscriber {
	return model.Subscriber{
		UserID:        r.UserID,
		Tracks:        decodeTracks(r.Tracks),
		ContactMethod: model.ContactMethod(r.ContactMethod),
		Email:         r.Email.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// UpsertSubscriber inserts the subscriber or replaces every mutable field
// of the existing record in a single statement. Resubmitting an identical
// payload leaves the row, including updated_at, untouched.
func (s *SQLiteStore) UpsertSubscriber(
	ctx context.Context,
	sub model.Subscriber,
) (*model.Subscriber, error) {
	if sub.UserID == "" {
		return nil, errors.New("upserting subscriber: empty user id")
	}
	if len(sub.Tracks) == 0 {
		return nil, fmt.Errorf("upserting subscriber %s: empty track set", sub.UserID)
	}

	now := time.Now().UTC()

	const query = `
		INSERT INTO subscribers (
			user_id, tracks, contact_method, email, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tracks         = excluded.tracks,
			contact_method = excluded.contact_method,
			email          = excluded.email,
			updated_at     = excluded.updated_at
		WHERE tracks IS NOT excluded.tracks
			OR contact_method IS NOT excluded.contact_method
			OR email IS NOT excluded.email`

	_, err := s.db.ExecContext(ctx, query,
		sub.UserID, encodeTracks(sub.Tracks), string(sub.ContactMethod),
		nullString(sub.Email), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting subscriber %s: %w", sub.UserID, err)
	}

	return s.GetSubscriber(ctx, sub.UserID)
}

// GetSubscriber retrieves a subscriber by user ID.
func (s *SQLiteStore) GetSubscriber(
	ctx context.Context,
	userID string,
) (*model.Subscriber, error) {
	var row subscriberRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM subscribers WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting subscriber %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscriber %s: %w", userID, err)
	}

	sub := row.toModel()
	return &sub, nil
}

// ListSubscribers returns all subscribers ordered by registration time.
func (s *SQLiteStore) ListSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	var rows []subscriberRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM subscribers ORDER BY created_at, user_id")
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}

	subs := make([]model.Subscriber, len(rows))
	for i, r := range rows {
		subs[i] = r.toModel()
	}
	return subs, nil
}

func encodeTracks(tracks []model.Track) string {
	names := make([]string, len(tracks))
	for i, t := range tracks {
		names[i] = string(t)
	}
	return strings.Join(names, trackSeparator)
}

func decodeTracks(s string) []model.Track {
	var tracks []model.Track
	for _, part := range strings.Split(s, trackSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			tracks = append(tracks, model.Track(part))
		}
	}
	return tracks
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
