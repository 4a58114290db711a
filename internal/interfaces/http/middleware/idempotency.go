package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/erp/billhub/internal/infrastructure/cache"
	"github.com/erp/billhub/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the request header clients set to make a
	// mutating call safe to retry
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayedHeader marks a response served from the store
	IdempotentReplayedHeader = "Idempotent-Replayed"
	// MaxIdempotencyKeyLength bounds the header value
	MaxIdempotencyKeyLength = 255

	defaultIdempotencyTTL     = 24 * time.Hour
	defaultIdempotencyLockTTL = time.Minute
)

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store cache.IdempotencyStore
	// TTL is how long a completed response is replayed
	TTL time.Duration
	// LockTTL bounds how long a crashed request can hold its key
	LockTTL time.Duration
	Logger  *zap.Logger
}

// Idempotency replays completed responses for repeated Idempotency-Key
// values. Keys are scoped by method and path. A duplicate arriving while the
// first request is still running gets 409; a 5xx response frees the key.
// Reusing a key with a different body gets 422 instead of the stored response.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		return passthrough
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultIdempotencyLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			abortWithCode(c, dto.ErrCodeInvalidInput, "Idempotency-Key is too long")
			return
		}

		fingerprint, err := bodyFingerprint(c.Request)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abortWithCode(c, dto.ErrCodeRequestTooLarge, "Request body too large")
				return
			}
			abortWithCode(c, dto.ErrCodeInvalidInput, "Failed to read request body")
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.Method + " " + c.Request.URL.Path + " " + key
		log := cfg.Logger.With(zap.String("idempotency_key", key), zap.String("request_id", GetRequestID(c)))

		res, err := cfg.Store.Reserve(ctx, scoped, cfg.LockTTL)
		if err != nil {
			log.Error("Idempotency store unavailable", zap.Error(err))
			c.Header("Retry-After", "1")
			abortWithCode(c, dto.ErrCodeStoreUnavailable, "Idempotency store unavailable")
			return
		}

		switch {
		case res.Response != nil && res.Response.Fingerprint != fingerprint:
			log.Warn("Idempotency-Key reused with a different body")
			abortWithCode(c, dto.ErrCodeIdempotencyKeyReused, "Idempotency-Key was already used with a different request body")
			return
		case res.Response != nil:
			log.Debug("Replaying stored response", zap.Int("status", res.Response.Status))
			c.Header(IdempotentReplayedHeader, "true")
			c.Data(res.Response.Status, res.Response.ContentType, res.Response.Body)
			c.Abort()
			return
		case res.InFlight():
			abortWithCode(c, dto.ErrCodeIdempotencyInFlight, "A request with this Idempotency-Key is still in progress")
			return
		}

		release := func() {
			if err := cfg.Store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
		defer func() {
			if r := recover(); r != nil {
				release()
				panic(r)
			}
		}()

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if !cache.Replayable(status) {
			release()
			return
		}
		stored := cache.StoredResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			Fingerprint: fingerprint,
		}
		if err := cfg.Store.Complete(context.WithoutCancel(ctx), scoped, stored, cfg.TTL); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

// bodyFingerprint hashes the request body and leaves it readable for the
// handlers downstream
func bodyFingerprint(r *http.Request) (string, error) {
	if r.Body == nil {
		return hex.EncodeToString(sha256.New().Sum(nil)), nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func abortWithCode(c *gin.Context, code, message string) {
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// capturingWriter tees the response body so it can be stored for replay
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
