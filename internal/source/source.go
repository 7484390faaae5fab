// Package source defines announcement sources polled in the background.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/track-notifier/internal/model"
)

// AuthError indicates that authentication has failed or expired for a source.
type AuthError struct {
	Source  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Source, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Source produces announcements that did not arrive through the webhook.
type Source interface {
	// Name identifies the source in logs, metrics and status reports.
	Name() string

	// Fetch returns announcements that appeared since the previous call.
	// Sources that cannot track this themselves may return repeats; the
	// pipeline drops announcements it has already seen.
	Fetch(ctx context.Context) ([]model.Announcement, error)
}
