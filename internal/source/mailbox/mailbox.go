// Package mailbox reads task announcements from an IMAP mailbox.
package mailbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/track-notifier/internal/model"
)

// Name identifies the mailbox source.
const Name = "email"

const fetchLimit = 50

// reader is the IMAP subset used by Source.
type reader interface {
	FetchUnseen(ctx context.Context, mailbox string, limit int) ([]Message, error)
	MarkSeen(ctx context.Context, mailbox string, uids []uint32) error
}

// Source turns unseen messages into announcements and marks them seen.
type Source struct {
	client  reader
	mailbox string
	now     func() time.Time
}

// New creates a mailbox source from the IMAP settings.
func New(cfg model.IMAPConfig) *Source {
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &Source{
		client:  NewIMAPClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password.Value(), cfg.TLS),
		mailbox: mailbox,
		now:     time.Now,
	}
}

// Name returns the source identifier.
func (s *Source) Name() string { return Name }

// Fetch returns unseen messages as announcements. Messages are marked
// seen once converted; a failure to mark them is returned along with
// the announcements, which the pipeline deduplicates on the next poll.
func (s *Source) Fetch(ctx context.Context) ([]model.Announcement, error) {
	messages, err := s.client.FetchUnseen(ctx, s.mailbox, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching mailbox %s: %w", s.mailbox, err)
	}

	announcements := make([]model.Announcement, 0, len(messages))
	uids := make([]uint32, 0, len(messages))
	for _, m := range messages {
		uids = append(uids, m.Envelope.UID)
		if a, ok := s.toAnnouncement(m); ok {
			announcements = append(announcements, a)
		}
	}

	if err := s.client.MarkSeen(ctx, s.mailbox, uids); err != nil {
		return announcements, fmt.Errorf("marking messages seen: %w", err)
	}
	return announcements, nil
}

func (s *Source) toAnnouncement(m Message) (model.Announcement, bool) {
	body := strings.TrimSpace(m.Body())
	subject := strings.TrimSpace(m.Envelope.Subject)

	text := body
	if subject != "" {
		text = subject + "\n\n" + body
	}
	if strings.TrimSpace(text) == "" {
		return model.Announcement{}, false
	}

	id := "email:" + strings.Trim(m.Envelope.MessageID, "<>")
	if m.Envelope.MessageID == "" {
		id = "email:" + s.mailbox + ":" + strconv.FormatUint(uint64(m.Envelope.UID), 10)
	}

	receivedAt := m.Envelope.Date
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	return model.Announcement{
		ID:         id,
		Origin:     model.OriginEmail,
		User:       m.Envelope.From,
		Text:       text,
		ReceivedAt: receivedAt,
	}, true
}
