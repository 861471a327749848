package enrich

import (
	"log/slog"
	"time"
)

// Defaults for New.
const (
	DefaultWorkers     = 4
	DefaultCallTimeout = 60 * time.Second
	DefaultMaxAttempts = 3
)

// Backoff bounds for retried provider calls.
const (
	retryFloor   = 1 * time.Second
	retryCeiling = 60 * time.Second
)

// Option configures an Enricher.
type Option func(*Enricher)

// Workers sets the number of concurrent provider calls (default 4).
// Values below 1 run sequentially.
func Workers(n int) Option {
	return func(e *Enricher) { e.workers = n }
}

// CallTimeout bounds the total time spent on one chunk, retries and
// backoff included (default 60s). Zero disables the bound.
func CallTimeout(d time.Duration) Option {
	return func(e *Enricher) { e.callTimeout = d }
}

// MaxAttempts sets the provider call attempt cap per chunk (default 3).
// Use 1 to disable retries.
func MaxAttempts(n int) Option {
	return func(e *Enricher) { e.maxAttempts = n }
}

// Logger sets a structured logger for batch progress and per-chunk
// failures. If not set, no logs are emitted.
func Logger(l *slog.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}
