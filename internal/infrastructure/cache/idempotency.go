// Package cache holds short-lived shared state: the request idempotency store.
package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrInvalidKey is returned for empty idempotency keys
var ErrInvalidKey = errors.New("idempotency key is empty")

// StoredResponse is a completed HTTP response kept for replay
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	// Fingerprint identifies the request body that produced the response
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Reservation is the outcome of reserving a key
type Reservation struct {
	// Acquired is true when the caller now owns the key and must
	// Complete or Release it
	Acquired bool
	// Response is set when the key already holds a completed response
	Response *StoredResponse
}

// InFlight reports a key that is held by a request still being processed
func (r Reservation) InFlight() bool {
	return !r.Acquired && r.Response == nil
}

// IdempotencyStore coordinates requests that carry the same Idempotency-Key
type IdempotencyStore interface {
	// Reserve claims key for lockTTL unless it is already pending or completed
	Reserve(ctx context.Context, key string, lockTTL time.Duration) (Reservation, error)

	// Complete stores the response under key for ttl
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error

	// Release drops the key so the request can be retried
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}

// Replayable reports whether a response may be stored and replayed.
// Server errors are not stored so the client can retry.
func Replayable(status int) bool {
	return status < http.StatusInternalServerError
}
