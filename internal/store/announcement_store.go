package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/track-notifier/internal/model"
)

// MarkAnnouncement inserts a processing row for a unless one exists.
func (s *SQLiteStore) MarkAnnouncement(
	ctx context.Context,
	a model.Announcement,
) (bool, error) {
	receivedAt := a.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO announcements (id, origin, channel, status, received_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Origin, a.Channel, string(model.AnnouncementProcessing), receivedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("marking announcement %s: %w", a.ID, err)
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// CompleteAnnouncement stores the final outcome of a processed announcement.
func (s *SQLiteStore) CompleteAnnouncement(
	ctx context.Context,
	rec model.AnnouncementRecord,
) error {
	processedAt := time.Now().UTC()
	if rec.ProcessedAt != nil {
		processedAt = rec.ProcessedAt.UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE announcements
		SET track = ?, deadline = ?, status = ?, recipients = ?, failures = ?, processed_at = ?
		WHERE id = ?`,
		rec.Track, rec.Deadline, string(rec.Status), rec.Recipients, rec.Failures, processedAt,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("completing announcement %s: %w", rec.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("completing announcement %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// GetAnnouncement retrieves a processed announcement by ID.
func (s *SQLiteStore) GetAnnouncement(
	ctx context.Context,
	id string,
) (*model.AnnouncementRecord, error) {
	var rec model.AnnouncementRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM announcements WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting announcement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting announcement %s: %w", id, err)
	}
	return &rec, nil
}

// ListAnnouncements returns the most recently received announcements.
func (s *SQLiteStore) ListAnnouncements(
	ctx context.Context,
	limit int,
) ([]model.AnnouncementRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var recs []model.AnnouncementRecord
	err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM announcements ORDER BY received_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}
	return recs, nil
}

// RecordDeliveries appends a batch of delivery outcomes. Deliveries
// without an ID get a new UUID.
func (s *SQLiteStore) RecordDeliveries(
	ctx context.Context,
	deliveries []model.Delivery,
) error {
	if len(deliveries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO deliveries (
			id, announcement_id, user_id, channel, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing delivery insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range deliveries {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now()
		}

		_, err := stmt.ExecContext(ctx,
			d.ID, d.AnnouncementID, d.UserID, d.Channel, d.Status, d.Error, d.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("recording delivery to %s: %w", d.UserID, err)
		}
	}

	return tx.Commit()
}

// ListDeliveries returns the delivery log of one announcement.
func (s *SQLiteStore) ListDeliveries(
	ctx context.Context,
	announcementID string,
) ([]model.Delivery, error) {
	var ds []model.Delivery
	err := s.db.SelectContext(ctx, &ds,
		"SELECT * FROM deliveries WHERE announcement_id = ? ORDER BY created_at, user_id",
		announcementID)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries for %s: %w", announcementID, err)
	}
	return ds, nil
}
