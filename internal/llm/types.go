package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single batch-translation call against a completion provider.
// Prompt already carries the full delimiter or marker protocol framing built
// by the translator package; the client is not aware of batches or runs.
type Request struct {
	Prompt      string
	Model       string
	Credentials string
}

type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Client is the engine's only dependency on a concrete LLM provider.
type Client interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}

var (
	ErrRateLimited    = errors.New("rate_limited")
	ErrContentRefused = errors.New("content_refused")
)

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }

// HTTPError represents a non-2xx HTTP response from a provider that didn't
// match one of the named sentinel cases (rate limit, content refusal). It
// carries the status code so errorclass can classify it as transient (5xx)
// or fatal (4xx other than 429) without string-matching the error text.
type HTTPError struct {
	StatusCode int
	Body       string
	Provider   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}
