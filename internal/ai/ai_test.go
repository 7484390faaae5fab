package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/track-notifier/internal/model"
)

func TestHuggingFaceSummarize(t *testing.T) {
	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test/model", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"summary_text":" Build a REST API. "}]`))
	}))
	defer srv.Close()

	h := NewHuggingFace("hf-token", WithBaseURL(srv.URL), WithModel("test/model"))
	out, err := h.Summarize(context.Background(), "long text", 50, 120)

	require.NoError(t, err)
	assert.Equal(t, "Build a REST API.", out)
	assert.Equal(t, "long text", got.Inputs)
	assert.Equal(t, 50, got.Parameters.MinLength)
	assert.Equal(t, 120, got.Parameters.MaxLength)
	assert.False(t, got.Parameters.DoSample)
}

func TestHuggingFaceRetriesWhileModelLoads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":1.5}`))
			return
		}
		_, _ = w.Write([]byte(`[{"summary_text":"done"}]`))
	}))
	defer srv.Close()

	h := NewHuggingFace("", WithBaseURL(srv.URL))
	out, err := h.Summarize(context.Background(), "text", 1, 10)

	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHuggingFaceErrors(t *testing.T) {
	t.Run("api error message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"input too long"}`))
		}))
		defer srv.Close()

		_, err := NewHuggingFace("", WithBaseURL(srv.URL)).Summarize(context.Background(), "x", 1, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input too long")
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		h := NewHuggingFace("", WithBaseURL(srv.URL), WithMaxRetries(2))
		_, err := h.Summarize(context.Background(), "x", 1, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("empty result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		_, err := NewHuggingFace("", WithBaseURL(srv.URL)).Summarize(context.Background(), "x", 1, 2)
		assert.Error(t, err)
	})

	t.Run("context deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := NewHuggingFace("", WithBaseURL(srv.URL)).Summarize(ctx, "x", 1, 2)
		assert.Error(t, err)
	})
}

func TestAnthropicSummarize(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Build "},{"type":"text","text":"an API."}]}`))
	}))
	defer srv.Close()

	a := NewAnthropic("sk-test", WithBaseURL(srv.URL))
	out, err := a.Summarize(context.Background(), "announcement", 50, 120)

	require.NoError(t, err)
	assert.Equal(t, "Build an API.", out)
	assert.Equal(t, defaultAnthropicModel, got.Model)
	assert.Equal(t, 240, got.MaxTokens)
	assert.Contains(t, got.System, "50 to 120 words")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "announcement", got.Messages[0].Content[0].Text)
}

func TestAnthropicErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropic("bad", WithBaseURL(srv.URL)).Summarize(context.Background(), "x", 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")
}

func TestRateLimitWaitsBetweenCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"summary_text":"ok"}]`))
	}))
	defer srv.Close()

	h := NewHuggingFace("", WithBaseURL(srv.URL), WithRateLimit(10))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := h.Summarize(context.Background(), "x", 1, 2)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestNew(t *testing.T) {
	s, err := New(model.SummarizerConfig{Provider: "huggingface"})
	require.NoError(t, err)
	assert.IsType(t, &HuggingFace{}, s)

	_, err = New(model.SummarizerConfig{Provider: "anthropic"})
	assert.Error(t, err)

	s, err = New(model.SummarizerConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, s)

	s, err = New(model.SummarizerConfig{Provider: "none"})
	require.NoError(t, err)
	_, err = s.Summarize(context.Background(), "x", 1, 2)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(model.SummarizerConfig{Provider: "gpt"})
	assert.Error(t, err)
}
