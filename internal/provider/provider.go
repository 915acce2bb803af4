package provider

import (
	"context"
	"fmt"
)

// Job is a generation request as the provider sees it
type Job struct {
	Prompt          string `json:"prompt"`
	Style           string `json:"style,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Instrumental    bool   `json:"instrumental"`
	CallbackURL     string `json:"callback_url"`
}

// Client submits generation jobs to an external music provider.
// Submit returns the provider-assigned task id used to correlate callbacks.
type Client interface {
	Submit(ctx context.Context, job Job) (externalID string, err error)
}

// Error codes distinguish transient provider failures from permanent ones
const (
	CodeUnavailable = "unavailable"  // 5xx or network failure after retries
	CodeRateLimited = "rate-limited" // 429
	CodeRejected    = "rejected"     // any other 4xx, the job itself is bad
	CodeBadResponse = "bad-response" // 2xx without a usable task id
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s (%s)", e.Message, e.Code)
}
