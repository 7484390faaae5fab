// Package fanout delivers a summary document to every subscriber of the
// targeted tracks.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/track-notifier/internal/metrics"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/summary"
)

// Notification is one rendered message for one recipient.
type Notification struct {
	Recipient model.Subscriber
	Subject   string

	// Text is chat markup; PlainText is the same content for email.
	Text      string
	PlainText string
}

// Notifier delivers a notification over one channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SubscriberLister loads the current subscribers.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
}

// DeliveryRecorder appends delivery outcomes to the delivery log.
type DeliveryRecorder interface {
	RecordDeliveries(ctx context.Context, deliveries []model.Delivery) error
}

// Outcome is the captured result of delivering to one recipient.
type Outcome struct {
	UserID  string
	Channel string
	Err     error
}

// Report lists one Outcome per matched recipient, in subscriber order.
type Report struct {
	Targets  []model.Track
	Outcomes []Outcome
}

// Delivered returns the number of successful deliveries.
func (r *Report) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of failed deliveries.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Delivered()
}

// Config tunes delivery.
type Config struct {
	// Concurrency bounds in-flight deliveries.
	Concurrency int

	// SendTimeout bounds each individual delivery.
	SendTimeout time.Duration

	// Attribution is appended as a footer to every message.
	Attribution string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEmailNotifier enables email delivery for subscribers who chose it.
func WithEmailNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.email = n }
}

// WithRecorder logs every outcome through r.
func WithRecorder(r DeliveryRecorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// Dispatcher fans a document out to matching subscribers.
type Dispatcher struct {
	subscribers SubscriberLister
	dm          Notifier
	email       Notifier
	recorder    DeliveryRecorder
	cfg         Config
	logger      *zap.Logger
}

// NewDispatcher creates a Dispatcher that sends direct messages through dm.
func NewDispatcher(
	subs SubscriberLister,
	dm Notifier,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		subscribers: subs,
		dm:          dm,
		cfg:         cfg,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Match returns the subscribers whose track set intersects targets,
// preserving order.
func Match(subs []model.Subscriber, targets model.TrackSet) []model.Subscriber {
	var out []model.Subscriber
	for _, s := range subs {
		if s.Follows(targets) {
			out = append(out, s)
		}
	}
	return out
}

// Dispatch delivers doc to every subscriber following one of targets.
// Failures are captured per recipient in the Report; the returned error
// is non-nil only when subscribers could not be loaded.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	announcementID string,
	targets model.TrackSet,
	doc summary.Document,
	link string,
) (*Report, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	all, err := d.subscribers.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subscribers: %w", err)
	}

	recipients := Match(all, targets)
	report := &Report{
		Targets:  targetList(targets),
		Outcomes: make([]Outcome, len(recipients)),
	}
	if len(recipients) == 0 {
		d.logger.Info("no subscribers for announcement",
			zap.String("announcement_id", announcementID),
			zap.Strings("targets", trackNames(report.Targets)),
		)
		return report, nil
	}

	text := ComposeMessage(doc, link, d.cfg.Attribution)
	plain := ComposePlainMessage(doc, link, d.cfg.Attribution)

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, sub := range recipients {
		g.Go(func() error {
			report.Outcomes[i] = d.deliver(ctx, Notification{
				Recipient: sub,
				Subject:   doc.Title,
				Text:      text,
				PlainText: plain,
			})
			return nil
		})
	}
	_ = g.Wait()

	d.record(ctx, announcementID, report.Outcomes)

	d.logger.Info("announcement dispatched",
		zap.String("announcement_id", announcementID),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", report.Delivered()),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

// deliver sends n over the recipient's channel. A panicking notifier is
// reported as a failed outcome.
func (d *Dispatcher) deliver(ctx context.Context, n Notification) (out Outcome) {
	notifier, channel := d.notifierFor(n.Recipient)
	out = Outcome{UserID: n.Recipient.UserID, Channel: channel}

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("notifier panic: %v", r)
		}
		result := model.DeliveryDelivered
		if out.Err != nil {
			result = model.DeliveryFailed
			d.logger.Warn("delivery failed",
				zap.String("user_id", out.UserID),
				zap.String("channel", channel),
				zap.Error(out.Err),
			)
		}
		metrics.DeliveriesTotal.WithLabelValues(channel, result).Inc()
	}()

	if notifier == nil {
		out.Err = errors.New("no notifier configured for channel " + channel)
		return out
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	out.Err = notifier.Notify(sendCtx, n)
	return out
}

// notifierFor picks email for subscribers who asked for it and gave an
// address, when email delivery is configured. Everyone else gets a
// direct message.
func (d *Dispatcher) notifierFor(sub model.Subscriber) (Notifier, string) {
	if sub.ContactMethod == model.ContactEmail && sub.Email != "" && d.email != nil {
		return d.email, model.ChannelEmail
	}
	return d.dm, model.ChannelDirectMessage
}

func (d *Dispatcher) record(ctx context.Context, announcementID string, outcomes []Outcome) {
	if d.recorder == nil || announcementID == "" {
		return
	}

	now := time.Now()
	deliveries := make([]model.Delivery, len(outcomes))
	for i, o := range outcomes {
		deliveries[i] = model.Delivery{
			AnnouncementID: announcementID,
			UserID:         o.UserID,
			Channel:        o.Channel,
			Status:         model.DeliveryDelivered,
			CreatedAt:      now,
		}
		if o.Err != nil {
			deliveries[i].Status = model.DeliveryFailed
			deliveries[i].Error = o.Err.Error()
		}
	}

	if err := d.recorder.RecordDeliveries(ctx, deliveries); err != nil {
		d.logger.Error("recording deliveries", zap.String("announcement_id", announcementID), zap.Error(err))
	}
}

// ComposeMessage renders the chat message: document, link back to the
// original announcement, attribution footer.
func ComposeMessage(doc summary.Document, link, attribution string) string {
	text := doc.Text()
	if link != "" {
		text += "\n\n<" + link + "|View original announcement>"
	}
	if attribution != "" {
		text += "\n\n_" + attribution + "_"
	}
	return text
}

// ComposePlainMessage renders the same content without chat markup.
func ComposePlainMessage(doc summary.Document, link, attribution string) string {
	text := doc.PlainText()
	if link != "" {
		text += "\n\nView original announcement: " + link
	}
	if attribution != "" {
		text += "\n\n-- \n" + attribution
	}
	return text
}

func targetList(targets model.TrackSet) []model.Track {
	out := make([]model.Track, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func trackNames(tracks []model.Track) []string {
	names := make([]string, len(tracks))
	for i, t := range tracks {
		names[i] = string(t)
	}
	return names
}
