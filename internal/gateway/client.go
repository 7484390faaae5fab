// Package gateway adapts the Slack platform to the announcement pipeline:
// outbound Web API calls, inbound event decoding, request verification and
// the registration modal.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/nhle/track-notifier/internal/track"
)

// Messenger is the set of outbound platform operations the service uses.
type Messenger interface {
	// SendDirectMessage posts text to the user's direct conversation.
	SendDirectMessage(ctx context.Context, userID, text string) error

	// SendEphemeral posts text visible only to user in channel.
	SendEphemeral(ctx context.Context, channel, user, text string) error

	// Permalink returns a stable link to the message at ts in channel.
	Permalink(ctx context.Context, channel, ts string) (string, error)

	// OpenRegistrationForm opens the registration modal for the
	// interaction identified by triggerID. channel is carried through the
	// form so the confirmation can be posted where the command was run.
	OpenRegistrationForm(ctx context.Context, triggerID, channel string, catalog *track.Catalog) error
}

// Client implements Messenger with the Slack Web API.
type Client struct {
	api *slack.Client
}

// NewClient creates a Web API client authenticated with the bot token.
// apiURL overrides the API base URL when non-empty.
func NewClient(botToken, apiURL string) (*Client, error) {
	if botToken == "" {
		return nil, errors.New("slack bot token is required")
	}

	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Client{api: slack.New(botToken, opts...)}, nil
}

// SendDirectMessage posts text using the user ID as the channel, which the
// platform resolves to the bot's direct conversation with that user.
func (c *Client) SendDirectMessage(ctx context.Context, userID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, userID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("posting direct message: %w", err)
	}
	return nil
}

func (c *Client) SendEphemeral(ctx context.Context, channel, user, text string) error {
	if _, err := c.api.PostEphemeralContext(ctx, channel, user, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("posting ephemeral message: %w", err)
	}
	return nil
}

func (c *Client) Permalink(ctx context.Context, channel, ts string) (string, error) {
	link, err := c.api.GetPermalinkContext(ctx, &slack.PermalinkParameters{Channel: channel, Ts: ts})
	if err != nil {
		return "", fmt.Errorf("getting permalink for %s/%s: %w", channel, ts, err)
	}
	return link, nil
}

func (c *Client) OpenRegistrationForm(ctx context.Context, triggerID, channel string, catalog *track.Catalog) error {
	if triggerID == "" {
		return errors.New("opening registration form: missing trigger id")
	}
	if _, err := c.api.OpenViewContext(ctx, triggerID, RegistrationModal(catalog, channel)); err != nil {
		return fmt.Errorf("opening registration form: %w", err)
	}
	return nil
}
