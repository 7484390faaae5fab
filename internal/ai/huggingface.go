package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultHFBaseURL = "https://api-inference.huggingface.co"
	defaultHFModel   = "sshleifer/distilbart-cnn-12-6"
)

// HuggingFace calls a summarization model on the Hugging Face Inference API.
type HuggingFace struct {
	token string
	opts  clientOptions
}

// NewHuggingFace creates a client. token may be empty for public models,
// subject to anonymous rate limits.
func NewHuggingFace(token string, opts ...Option) *HuggingFace {
	o := defaultClientOptions(defaultHFBaseURL, defaultHFModel)
	for _, opt := range opts {
		opt(&o)
	}
	return &HuggingFace{token: token, opts: o}
}

// Summarize implements Summarizer. minLen and maxLen are passed to the
// model as generation bounds in tokens; sampling is disabled so the
// output is deterministic for a given input.
func (h *HuggingFace) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	reqBody := hfRequest{
		Inputs: text,
		Parameters: hfParameters{
			MinLength: minLen,
			MaxLength: maxLen,
			DoSample:  false,
		},
		Options: hfOptions{WaitForModel: true},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	headers := map[string]string{}
	if h.token != "" {
		headers["Authorization"] = "Bearer " + h.token
	}

	url := h.opts.baseURL + "/models/" + h.opts.model
	status, respBody, err := postJSON(ctx, &h.opts, url, bodyBytes, headers,
		http.StatusServiceUnavailable, http.StatusTooManyRequests)
	if err != nil {
		return "", fmt.Errorf("calling inference API: %w", err)
	}

	if status != http.StatusOK {
		var apiErr hfErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference API error (%d): %s", status, apiErr.Error)
		}
		return "", fmt.Errorf("inference API error (%d): %s", status, string(respBody))
	}

	var result []hfSummary
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result) == 0 {
		return "", fmt.Errorf("inference API returned no summaries")
	}

	return strings.TrimSpace(result[0].SummaryText), nil
}

// --- Inference API types ---

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

type hfErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}
