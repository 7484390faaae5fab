// Package registration validates and stores subscriber registrations.
package registration

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/metrics"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/store"
	"github.com/nhle/track-notifier/internal/track"
)

// Form field identifiers reported in ValidationError.Field.
const (
	FieldTracks  = "tracks"
	FieldContact = "contact"
	FieldEmail   = "email"
	FieldUser    = "user"
)

// ValidationError reports a registration payload the user must correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Input is a registration payload as submitted by a form.
type Input struct {
	UserID        string
	Tracks        []string
	ContactMethod string
	Email         string
}

// SubscriberStore is the persistence the service needs.
type SubscriberStore interface {
	UpsertSubscriber(ctx context.Context, sub model.Subscriber) (*model.Subscriber, error)
}

var _ SubscriberStore = (store.Store)(nil)

// Service validates registrations against a catalog and upserts them.
type Service struct {
	store   SubscriberStore
	catalog *track.Catalog
	logger  *zap.Logger

	mu    gosync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   gosync.Mutex
	refs int
}

// NewService creates a registration service.
func NewService(s SubscriberStore, c *track.Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   s,
		catalog: c,
		logger:  logger,
		locks:   make(map[string]*userLock),
	}
}

// Catalog returns the catalog registrations are validated against.
func (s *Service) Catalog() *track.Catalog { return s.catalog }

// Validate checks in and returns the normalized subscriber it describes.
func (s *Service) Validate(in Input) (model.Subscriber, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return model.Subscriber{}, &ValidationError{Field: FieldUser, Message: "user id is required"}
	}

	raw := make([]model.Track, 0, len(in.Tracks))
	for _, t := range in.Tracks {
		if t = strings.TrimSpace(t); t != "" {
			raw = append(raw, model.Track(t))
		}
	}
	if len(raw) == 0 {
		return model.Subscriber{}, &ValidationError{Field: FieldTracks, Message: "select at least one track"}
	}

	tracks, unknown := s.catalog.Normalize(raw)
	if len(unknown) > 0 {
		names := make([]string, len(unknown))
		for i, t := range unknown {
			names[i] = string(t)
		}
		return model.Subscriber{}, &ValidationError{
			Field:   FieldTracks,
			Message: "unknown track(s): " + strings.Join(names, ", "),
		}
	}

	contact, ok := model.ParseContactMethod(in.ContactMethod)
	if !ok {
		return model.Subscriber{}, &ValidationError{
			Field:   FieldContact,
			Message: fmt.Sprintf("unsupported contact method %q", in.ContactMethod),
		}
	}

	email := strings.TrimSpace(in.Email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return model.Subscriber{}, &ValidationError{Field: FieldEmail, Message: "not a valid email address"}
		}
		email = addr.Address
	}
	return model.Subscriber{
		UserID:        userID,
		Tracks:        tracks,
		ContactMethod: contact,
		Email:         email,
	}, nil
}

// Register validates in and fully replaces the subscriber's record.
// Registrations for the same user are applied one at a time.
func (s *Service) Register(ctx context.Context, in Input) (*model.Subscriber, error) {
	sub, err := s.Validate(in)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	unlock := s.lock(sub.UserID)
	defer unlock()

	saved, err := s.store.UpsertSubscriber(ctx, sub)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("saving registration for %s: %w", sub.UserID, err)
	}

	metrics.RegistrationsTotal.WithLabelValues("saved").Inc()
	s.logger.Info("registration saved",
		zap.String("user_id", saved.UserID),
		zap.Strings("tracks", saved.TrackNames()),
		zap.String("contact", string(saved.ContactMethod)),
	)
	return saved, nil
}

// lock acquires the per-user lock and returns its release function.
func (s *Service) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Confirmation renders the message shown to a user after registering.
func Confirmation(sub *model.Subscriber, c *track.Catalog) string {
	labels := make([]string, len(sub.Tracks))
	for i, t := range sub.Tracks {
		labels[i] = c.Label(t)
	}

	contact := "direct message"
	if sub.ContactMethod == model.ContactEmail {
		contact = "email"
		if sub.Email != "" {
			contact += " (" + sub.Email + ")"
		}
	}

	return fmt.Sprintf("Saved: tracks=%s, contact=%s", strings.Join(labels, ", "), contact)
}
