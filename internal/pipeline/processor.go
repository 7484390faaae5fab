// Package pipeline turns inbound announcements into dispatched summaries.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/fanout"
	"github.com/nhle/track-notifier/internal/gateway"
	"github.com/nhle/track-notifier/internal/metrics"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/summary"
	"github.com/nhle/track-notifier/internal/track"
)

// AnnouncementLog deduplicates announcements and stores their outcome.
type AnnouncementLog interface {
	MarkAnnouncement(ctx context.Context, a model.Announcement) (bool, error)
	CompleteAnnouncement(ctx context.Context, rec model.AnnouncementRecord) error
}

// Linker resolves a link to the original chat message.
type Linker interface {
	Permalink(ctx context.Context, channel, ts string) (string, error)
}

// Dispatcher delivers a document to the subscribers of targets.
type Dispatcher interface {
	Dispatch(ctx context.Context, announcementID string, targets model.TrackSet, doc summary.Document, link string) (*fanout.Report, error)
}

// Result describes how one announcement was handled.
type Result struct {
	Status   model.AnnouncementStatus
	Track    model.Track
	Document *summary.Document
	Link     string
	Report   *fanout.Report
}

// Option configures a Processor.
type Option func(*Processor)

// WithLinker resolves permalinks for chat announcements.
func WithLinker(l Linker) Option {
	return func(p *Processor) { p.linker = l }
}

// WithLog enables deduplication and outcome records.
func WithLog(l AnnouncementLog) Option {
	return func(p *Processor) { p.log = l }
}

// Processor runs one announcement through filtering, classification,
// summary assembly and fanout.
type Processor struct {
	filter     *gateway.Filter
	classifier *track.Classifier
	assembler  *summary.Assembler
	dispatcher Dispatcher
	linker     Linker
	log        AnnouncementLog
	logger     *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(
	filter *gateway.Filter,
	classifier *track.Classifier,
	assembler *summary.Assembler,
	dispatcher Dispatcher,
	logger *zap.Logger,
	opts ...Option,
) *Processor {
	if filter == nil {
		filter = gateway.NewFilter(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		filter:     filter,
		classifier: classifier,
		assembler:  assembler,
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles a. Chat messages must be plain user posts carrying an
// announcement signal; mailbox announcements skip the signal check. An
// error is returned only when the announcement log or the subscriber
// list is unavailable.
func (p *Processor) Process(ctx context.Context, a model.Announcement) (Result, error) {
	logger := p.logger.With(zap.String("announcement_id", a.ID), zap.String("origin", a.Origin))

	if a.Origin == model.OriginSlack {
		if !gateway.IsUserMessage(a.Subtype, a.BotID) {
			return p.finish(Result{Status: model.AnnouncementIgnoredSubtype}), nil
		}
		if !p.filter.IsAnnouncement(a.Text) {
			return p.finish(Result{Status: model.AnnouncementNotAnnouncement}), nil
		}
	}

	if p.log != nil {
		fresh, err := p.log.MarkAnnouncement(ctx, a)
		if err != nil {
			return Result{}, fmt.Errorf("deduplicating announcement: %w", err)
		}
		if !fresh {
			logger.Debug("duplicate announcement")
			return p.finish(Result{Status: model.AnnouncementDuplicate}), nil
		}
	}

	t, ok := p.classifier.Classify(a.Text)
	if !ok {
		logger.Info("no track detected", zap.String("preview", summary.Truncate(a.Text, 12)))
		res := p.finish(Result{Status: model.AnnouncementUnclassified})
		p.complete(ctx, a, res, "")
		return res, nil
	}
	metrics.ClassifiedTotal.WithLabelValues(string(t)).Inc()

	doc := p.assembler.Assemble(ctx, a.Text, t)
	link := p.link(ctx, a, logger)

	report, err := p.dispatcher.Dispatch(ctx, a.ID, model.NewTrackSet(t), doc, link)
	if err != nil {
		res := p.finish(Result{Status: model.AnnouncementFailed, Track: t, Document: &doc, Link: link})
		p.complete(ctx, a, res, doc.Deadline)
		return res, fmt.Errorf("dispatching announcement %s: %w", a.ID, err)
	}

	res := p.finish(Result{
		Status:   model.AnnouncementDispatched,
		Track:    t,
		Document: &doc,
		Link:     link,
		Report:   report,
	})
	p.complete(ctx, a, res, doc.Deadline)

	logger.Info("announcement processed",
		zap.String("track", string(t)),
		zap.String("deadline", doc.Deadline),
		zap.Int("delivered", report.Delivered()),
		zap.Int("failed", report.Failed()),
	)
	return res, nil
}

// link returns the precomputed link, or asks the platform for one. A
// lookup failure yields no link.
func (p *Processor) link(ctx context.Context, a model.Announcement, logger *zap.Logger) string {
	if a.Link != "" || p.linker == nil || a.Channel == "" || a.Timestamp == "" {
		return a.Link
	}
	link, err := p.linker.Permalink(ctx, a.Channel, a.Timestamp)
	if err != nil {
		logger.Warn("permalink lookup failed", zap.Error(err))
		return ""
	}
	return link
}

func (p *Processor) finish(res Result) Result {
	metrics.AnnouncementsTotal.WithLabelValues(string(res.Status)).Inc()
	return res
}

// complete stores the outcome. Failures are logged only: the
// announcement has already been acted on.
func (p *Processor) complete(ctx context.Context, a model.Announcement, res Result, deadline string) {
	if p.log == nil {
		return
	}
	now := time.Now()
	rec := model.AnnouncementRecord{
		ID:          a.ID,
		Track:       string(res.Track),
		Deadline:    deadline,
		Status:      res.Status,
		ProcessedAt: &now,
	}
	if res.Report != nil {
		rec.Recipients = len(res.Report.Outcomes)
		rec.Failures = res.Report.Failed()
	}
	if err := p.log.CompleteAnnouncement(ctx, rec); err != nil {
		p.logger.Error("recording announcement outcome", zap.String("announcement_id", a.ID), zap.Error(err))
	}
}
