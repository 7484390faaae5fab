package registration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/track"
	"github.com/nhle/track-notifier/tests/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.NewTestStore(t), track.Extended(), zap.NewNop())
}

func TestRegisterNormalizesAndSaves(t *testing.T) {
	svc := newTestService(t)

	sub, err := svc.Register(context.Background(), Input{
		UserID:        " U1 ",
		Tracks:        []string{"backend", "Frontend", "backend"},
		ContactMethod: "slack",
		Email:         "Ada <ada@example.com>",
	})
	require.NoError(t, err)

	assert.Equal(t, "U1", sub.UserID)
	assert.Equal(t, []model.Track{"frontend", "backend"}, sub.Tracks)
	assert.Equal(t, model.ContactDirectMessage, sub.ContactMethod)
	assert.Equal(t, "ada@example.com", sub.Email)
}

func TestRegisterFullReplace(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Input{UserID: "U1", Tracks: []string{"backend", "devops"}, ContactMethod: "email", Email: "a@example.com"})
	require.NoError(t, err)

	sub, err := svc.Register(ctx, Input{UserID: "U1", Tracks: []string{"uiux"}, ContactMethod: "direct_message"})
	require.NoError(t, err)

	assert.Equal(t, []model.Track{"uiux"}, sub.Tracks)
	assert.Equal(t, model.ContactDirectMessage, sub.ContactMethod)
	assert.Empty(t, sub.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing user", Input{Tracks: []string{"backend"}, ContactMethod: "slack"}, FieldUser},
		{"empty tracks", Input{UserID: "U1", ContactMethod: "slack"}, FieldTracks},
		{"blank tracks", Input{UserID: "U1", Tracks: []string{" ", ""}, ContactMethod: "slack"}, FieldTracks},
		{"unknown track", Input{UserID: "U1", Tracks: []string{"backend", "astrology"}, ContactMethod: "slack"}, FieldTracks},
		{"bad contact", Input{UserID: "U1", Tracks: []string{"backend"}, ContactMethod: "fax"}, FieldContact},
		{"bad email", Input{UserID: "U1", Tracks: []string{"backend"}, ContactMethod: "email", Email: "not-an-email"}, FieldEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRegisterRejectsTracksOutsideActiveCatalog(t *testing.T) {
	svc := NewService(testutil.NewTestStore(t), track.Legacy(), zap.NewNop())

	_, err := svc.Register(context.Background(), Input{UserID: "U1", Tracks: []string{"general"}, ContactMethod: "slack"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldTracks, verr.Field)

	sub, err := svc.Register(context.Background(), Input{UserID: "U1", Tracks: []string{"no-code"}, ContactMethod: "slack"})
	require.NoError(t, err)
	assert.Equal(t, []model.Track{"no-code"}, sub.Tracks)
}

func TestRegisterEmailContactWithoutAddress(t *testing.T) {
	svc := newTestService(t)

	sub, err := svc.Register(context.Background(), Input{UserID: "U1", Tracks: []string{"data"}, ContactMethod: "email"})
	require.NoError(t, err)
	assert.Equal(t, model.ContactEmail, sub.ContactMethod)
	assert.Empty(t, sub.Email)
}

func TestRegisterConcurrentSameUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	inputs := []Input{
		{UserID: "U7", Tracks: []string{"backend"}, ContactMethod: "slack"},
		{UserID: "U7", Tracks: []string{"mobile", "data"}, ContactMethod: "email", Email: "m@example.com"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(in Input) {
			defer wg.Done()
			_, err := svc.Register(ctx, in)
			assert.NoError(t, err)
		}(inputs[i%2])
	}
	wg.Wait()

	assert.Empty(t, svc.locks, "per-user locks are released")
}

func TestConfirmation(t *testing.T) {
	c := track.Extended()

	msg := Confirmation(&model.Subscriber{Tracks: []model.Track{"uiux", "backend"}, ContactMethod: model.ContactDirectMessage}, c)
	assert.Equal(t, "Saved: tracks=UI/UX, Backend, contact=direct message", msg)

	msg = Confirmation(&model.Subscriber{Tracks: []model.Track{"data"}, ContactMethod: model.ContactEmail, Email: "d@example.com"}, c)
	assert.Equal(t, "Saved: tracks=Data, contact=email (d@example.com)", msg)
}
