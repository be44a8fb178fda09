// Package errorclass classifies LLM call failures as transient (worth a
// retry or a failover to the secondary provider) or fatal (stop retrying,
// surface the batch as failed), and defines the typed errors that
// classification recognises; the request pipeline raises ValidationError
// for an upload that is not a DOCX package.
package errorclass

import "fmt"

// RateLimitError represents a rate limit or throttling response from a
// provider.
type RateLimitError struct {
	Provider string
	Model    string
	Reason   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit: %s/%s - %s", e.Provider, e.Model, e.Reason)
}

// ValidationError represents a fatal, non-retryable input problem: a
// malformed request, an unsupported package, or a batch that cannot be
// parsed into a valid translation response no matter how many times it
// is retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}
