package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/slack-go/slack/slackevents"

	"github.com/nhle/track-notifier/internal/model"
)

// Event is a decoded Events API payload. At most one field is set.
type Event struct {
	// Challenge is set for url_verification requests and must be echoed.
	Challenge string

	// Message is set for channel message callbacks.
	Message *model.Announcement
}

// DecodeEvent parses an Events API request body. Callbacks other than
// messages decode to an empty Event.
func DecodeEvent(body []byte) (Event, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return Event{}, fmt.Errorf("parsing event: %w", err)
	}

	switch ev.Type {
	case slackevents.URLVerification:
		var req slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &req); err != nil {
			return Event{}, fmt.Errorf("parsing url verification: %w", err)
		}
		return Event{Challenge: req.Challenge}, nil

	case slackevents.CallbackEvent:
		msg, ok := ev.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok {
			return Event{}, nil
		}
		return Event{Message: &model.Announcement{
			ID:         "slack:" + msg.Channel + ":" + msg.TimeStamp,
			Origin:     model.OriginSlack,
			Channel:    msg.Channel,
			Timestamp:  msg.TimeStamp,
			User:       msg.User,
			Text:       msg.Text,
			Subtype:    msg.SubType,
			BotID:      msg.BotID,
			ReceivedAt: time.Now(),
		}}, nil
	}

	return Event{}, nil
}
