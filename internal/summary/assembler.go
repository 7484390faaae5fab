// Package summary turns a classified announcement into a Document.
package summary

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/extract"
	"github.com/nhle/track-notifier/internal/metrics"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/track"
)

// FallbackSummary replaces the abstract when summarization fails.
const FallbackSummary = "Summary not available."

// Summarizer produces an abstract of text whose length, in model tokens,
// lies between minLen and maxLen.
type Summarizer interface {
	Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error)
}

// Options bounds the summarization call.
type Options struct {
	MaxInputTokens int
	MinLength      int
	MaxLength      int
	Timeout        time.Duration
}

// DefaultOptions mirrors the defaults of the summarization model.
func DefaultOptions() Options {
	return Options{
		MaxInputTokens: 700,
		MinLength:      50,
		MaxLength:      120,
		Timeout:        20 * time.Second,
	}
}

// Assembler builds Documents from announcement text.
type Assembler struct {
	summarizer Summarizer
	extractor  *extract.Extractor
	catalog    *track.Catalog
	opts       Options
	logger     *zap.Logger
}

// NewAssembler creates an Assembler. A nil summarizer always yields the
// fallback summary.
func NewAssembler(
	s Summarizer,
	e *extract.Extractor,
	c *track.Catalog,
	opts Options,
	logger *zap.Logger,
) *Assembler {
	d := DefaultOptions()
	if opts.MaxInputTokens <= 0 {
		opts.MaxInputTokens = d.MaxInputTokens
	}
	if opts.MinLength <= 0 {
		opts.MinLength = d.MinLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = d.MaxLength
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	if e == nil {
		e = extract.New(extract.EndpointsBackendOnly)
	}
	if c == nil {
		c = track.Extended()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assembler{
		summarizer: s,
		extractor:  e,
		catalog:    c,
		opts:       opts,
		logger:     logger,
	}
}

// Assemble builds the Document for text classified as t. It never fails:
// a summarizer error, timeout or empty result produces FallbackSummary and
// the remaining sections are still filled.
func (a *Assembler) Assemble(ctx context.Context, text string, t model.Track) Document {
	ex := a.extractor.Extract(text, t)

	return Document{
		Track:            t,
		Title:            Title(a.catalog.Label(t)),
		Summary:          a.summarize(ctx, Truncate(text, a.opts.MaxInputTokens)),
		Deadline:         ex.Deadline,
		Endpoints:        ex.Endpoints,
		EndpointsScanned: ex.EndpointsScanned,
		Deliverables:     a.catalog.Deliverables(t),
	}
}

func (a *Assembler) summarize(ctx context.Context, text string) string {
	if a.summarizer == nil {
		metrics.SummarizerCalls.WithLabelValues("disabled").Inc()
		return FallbackSummary
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	out, err := a.summarizer.Summarize(ctx, text, a.opts.MinLength, a.opts.MaxLength)
	metrics.SummarizerDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SummarizerCalls.WithLabelValues("error").Inc()
		a.logger.Warn("summarization failed, using fallback",
			zap.Error(err),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
		)
		return FallbackSummary
	}

	out = strings.TrimSpace(out)
	if out == "" {
		metrics.SummarizerCalls.WithLabelValues("empty").Inc()
		a.logger.Warn("summarizer returned empty output, using fallback")
		return FallbackSummary
	}

	metrics.SummarizerCalls.WithLabelValues("ok").Inc()
	return out
}

// Title returns the document heading for a track label.
func Title(label string) string {
	return "New " + label + " Task Summary"
}

// Truncate keeps the first n whitespace-delimited tokens of text,
// joined by single spaces. Text with n or fewer tokens is returned as is.
func Truncate(text string, n int) string {
	fields := strings.Fields(text)
	if n <= 0 || len(fields) <= n {
		return text
	}
	return strings.Join(fields[:n], " ")
}
