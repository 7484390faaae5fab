// Package ai provides summarization clients for hosted language models.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nhle/track-notifier/internal/model"
)

// ErrDisabled is returned by the "none" provider.
var ErrDisabled = errors.New("summarization is disabled")

// Summarizer produces an abstract of text bounded by minLen and maxLen.
type Summarizer interface {
	Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error)
}

// Option configures a summarization client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

func defaultClientOptions(baseURL, model string) clientOptions {
	return clientOptions{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithRateLimit allows at most perSec calls per second with a burst of one.
// A non-positive value disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(o *clientOptions) {
		if perSec > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		} else {
			o.limiter = nil
		}
	}
}

// WithMaxRetries sets how often a throttled or loading-model response is
// retried.
func WithMaxRetries(n int) Option {
	return func(o *clientOptions) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// Disabled is a Summarizer that always fails with ErrDisabled.
type Disabled struct{}

// Summarize implements Summarizer.
func (Disabled) Summarize(context.Context, string, int, int) (string, error) {
	return "", ErrDisabled
}

// New builds the summarizer selected by cfg.Provider.
func New(cfg model.SummarizerConfig) (Summarizer, error) {
	opts := []Option{
		WithModel(cfg.Model),
		WithBaseURL(cfg.BaseURL),
		WithRateLimit(cfg.RatePerSec),
	}

	switch cfg.Provider {
	case "huggingface", "":
		return NewHuggingFace(cfg.APIKey.Value(), opts...), nil
	case "anthropic":
		if !cfg.APIKey.IsSet() {
			return nil, errors.New("anthropic summarizer requires an API key")
		}
		return NewAnthropic(cfg.APIKey.Value(), opts...), nil
	case "none":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}
