// Package metrics provides Prometheus metrics for the announcement pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "track_notifier"

var (
	// AnnouncementsTotal counts processed announcements.
	// Labels: status (ignored_subtype, not_announcement, duplicate, unclassified, dispatched)
	AnnouncementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "announcements_total",
			Help:      "Total number of announcements by processing outcome",
		},
		[]string{"status"},
	)

	// AnnouncementsDropped counts announcements rejected by a full queue.
	AnnouncementsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "announcements_dropped_total",
			Help:      "Total number of announcements dropped because the queue was full",
		},
	)

	// ClassifiedTotal counts announcements by classified track.
	ClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "classified_total",
			Help:      "Total number of announcements by classified track",
		},
		[]string{"track"},
	)

	// DeliveriesTotal counts per-recipient delivery attempts.
	// Labels: channel (direct_message, email), result (delivered, failed)
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "deliveries_total",
			Help:      "Total number of delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	// DispatchDuration tracks how long a full fan-out takes.
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of announcement fan-out in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SummarizerCalls counts summarization attempts.
	// Labels: result (ok, error, empty, disabled)
	SummarizerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summarizer",
			Name:      "calls_total",
			Help:      "Total number of summarization calls by result",
		},
		[]string{"result"},
	)

	// SummarizerDuration tracks summarization latency.
	SummarizerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summarizer",
			Name:      "duration_seconds",
			Help:      "Duration of summarization calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	// RegistrationsTotal counts registration attempts.
	// Labels: result (saved, invalid, error)
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "upserts_total",
			Help:      "Total number of registration upserts by result",
		},
		[]string{"result"},
	)

	// SourceFetches counts announcement source polls.
	// Labels: source, result (ok, error)
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of announcement source polls by result",
		},
		[]string{"source", "result"},
	)
)
