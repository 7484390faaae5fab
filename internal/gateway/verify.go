package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// ErrInvalidSignature is returned when a request fails signature checks.
var ErrInvalidSignature = errors.New("invalid request signature")

// VerifyRequest checks the v0 signature of an inbound platform request
// against signingSecret. It also rejects stale timestamps.
func VerifyRequest(header http.Header, body []byte, signingSecret string) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("hashing request body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
