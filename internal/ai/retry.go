package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxBackoff caps the wait between retries.
const maxBackoff = 30 * time.Second

// postJSON sends body to url and returns the response status and body.
// Responses with a status in retryOn are retried up to o.maxRetries times,
// honouring Retry-After. The rate limiter, when set, is waited on before
// every attempt.
func postJSON(
	ctx context.Context,
	o *clientOptions,
	url string,
	body []byte,
	headers map[string]string,
	retryOn ...int,
) (int, []byte, error) {
	var lastStatus int
	var lastBody []byte

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return 0, nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := o.httpClient.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("executing request: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return 0, nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if !contains(retryOn, resp.StatusCode) || attempt == o.maxRetries {
			return resp.StatusCode, respBody, nil
		}

		lastStatus, lastBody = resp.StatusCode, respBody
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		case <-time.After(retryAfterDuration(resp, attempt)):
		}
	}

	return lastStatus, lastBody, nil
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			d := time.Duration(seconds) * time.Second
			if d > maxBackoff {
				d = maxBackoff
			}
			return d
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

func contains(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
