package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"
	apiVersion              = "2023-06-01"
)

// Anthropic summarizes text with the Claude Messages API.
type Anthropic struct {
	apiKey string
	opts   clientOptions
}

// NewAnthropic creates a Messages API summarizer.
func NewAnthropic(apiKey string, opts ...Option) *Anthropic {
	o := defaultClientOptions(defaultAnthropicBaseURL, defaultAnthropicModel)
	for _, opt := range opts {
		opt(&o)
	}
	return &Anthropic{apiKey: apiKey, opts: o}
}

// Summarize implements Summarizer. The length bounds are expressed to the
// model as a word range; max_tokens leaves headroom above maxLen.
func (a *Anthropic) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	reqBody := apiRequest{
		Model:     a.opts.model,
		MaxTokens: maxLen * 2,
		System:    buildSystemPrompt(minLen, maxLen),
		Messages: []apiMessage{
			{
				Role:    "user",
				Content: []apiContentBlock{{Type: "text", Text: text}},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": apiVersion,
	}

	status, respBody, err := postJSON(ctx, &a.opts, a.opts.baseURL+"/v1/messages", bodyBytes, headers,
		http.StatusTooManyRequests, 529)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	if status != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", status, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", status, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var parts []string
	for _, block := range result.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "")), nil
}

// buildSystemPrompt asks for a plain abstract within the word bounds.
func buildSystemPrompt(minLen, maxLen int) string {
	var sb strings.Builder
	sb.WriteString("You summarize task announcements for program participants. ")
	sb.WriteString(fmt.Sprintf("Write a single plain-text paragraph of %d to %d words ", minLen, maxLen))
	sb.WriteString("describing what must be built. ")
	sb.WriteString("Do not list deadlines, endpoints or deliverables; ")
	sb.WriteString("they are shown separately. No markdown, no preamble.")
	return sb.String()
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
