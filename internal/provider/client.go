package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultSubmitTimeout = 90 * time.Second
	defaultHTTPTimeout   = 30 * time.Second
	defaultRetryMax      = 2
	defaultRetryWaitMin  = 200 * time.Millisecond
	defaultRetryWaitMax  = 2 * time.Second
)

type ClientConfig struct {
	// Provider base address, e.g. https://api.provider.example
	Addr string

	// Bearer token for the provider API
	APIKey string

	// URL the provider will POST status callbacks to
	CallbackURL string
}

// HTTPClient talks to the provider's generate endpoint.
// Transient failures (network errors, 5xx) are retried with backoff before
// being reported as unavailable.
type HTTPClient struct {
	addr        string
	apiKey      string
	callbackURL string
	client      *retryablehttp.Client
}

func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetryMax
	client.RetryWaitMin = defaultRetryWaitMin
	client.RetryWaitMax = defaultRetryWaitMax
	client.HTTPClient.Timeout = defaultHTTPTimeout
	client.Logger = nil

	// Retry transport errors and 5xx only. 4xx (rate limits included) is the
	// provider's final word on this submission, not something to hammer on.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented, nil
	}

	// Hand back the last response instead of a synthetic "giving up" error so
	// Submit can map the status code
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPClient{
		addr:        cfg.Addr,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
		client:      client,
	}
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

func (c *HTTPClient) Submit(ctx context.Context, job Job) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultSubmitTimeout)
	defer cancel()

	job.CallbackURL = c.callbackURL
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("error marshaling job. Err: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating request. Err: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &Error{Code: CodeUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck

	switch {
	case resp.StatusCode >= 500:
		return "", &Error{Code: CodeUnavailable, Message: fmt.Sprintf("provider returned %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Error{Code: CodeRateLimited, Message: "provider rate limit hit"}
	case resp.StatusCode >= 400:
		return "", &Error{Code: CodeRejected, Message: fmt.Sprintf("provider rejected job with %d", resp.StatusCode)}
	}

	var parsed submitResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", &Error{Code: CodeBadResponse, Message: "provider response is not valid json"}
	}
	if parsed.TaskID == "" {
		return "", &Error{Code: CodeBadResponse, Message: "provider response has no task id"}
	}

	return parsed.TaskID, nil
}
