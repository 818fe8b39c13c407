package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// FetchError is a network or parse failure inside an adapter. The
// orchestrator retries it with backoff, then isolates the failure to that
// source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NormalizationError marks a malformed raw record. The posting is skipped
// and counted; the source keeps going.
type NormalizationError struct {
	Source string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalizing %s posting: %s", e.Source, e.Reason)
}

// PersistenceError is a store write failure for a single posting. The write
// is retried once; after that the posting is dropped and logged.
type PersistenceError struct {
	URL string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.URL, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError means a source is missing a required credential or
// setting. The source is skipped entirely at startup; other sources proceed.
type ConfigurationError struct {
	Source string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %s misconfigured: %s", e.Source, e.Reason)
}
