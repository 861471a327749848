package strata

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound reports that a requested record does not exist in a store.
// Both store backends wrap it so callers can test with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrLLM wraps a generation-service failure with the provider and operation
// that produced it.
type ErrLLM struct {
	Provider string
	Op       string
	Err      error
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ErrLLM) Unwrap() error { return e.Err }

// ErrHTTP is a non-2xx response from a provider API. Status 429 and 503 are
// treated as transient by WithRetry; RetryAfter, when nonzero, is the
// server-requested minimum delay parsed from the Retry-After header.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.Status, body)
}

// ParseRetryAfter parses a Retry-After header value, which is either
// delta-seconds ("30") or an HTTP-date. Returns 0 for empty, malformed, or
// past values.
func ParseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
