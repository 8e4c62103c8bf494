package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gotransfer/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	pendingMarker     = "processing"
	storeTimeout      = 2 * time.Second
	panicResponseBody = `{"error":"internal server error","code":"INTERNAL"}`
)

// IdempotencyMiddleware replays the stored response of a repeated mutating
// request. Responses that prove no remote mutation happened are not kept,
// so the caller may retry them under the same key.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. A zero ttl
// uses usecase.IdempotencyKeyTTL.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		// The same key on different endpoints or callers never collides.
		key = CallerFromContext(r.Context()).ID + ":" + r.URL.Path + ":" + key

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			if cached == nil || string(cached) == pendingMarker {
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			}
			replay(w, cached)
			return
		}

		// Capture response
		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		defer func() {
			// A panicking handler may already have moved money. Keep the
			// key as an internal error and let Recovery answer.
			if rec := recover(); rec != nil {
				m.complete(r.Context(), key, http.StatusInternalServerError, []byte(panicResponseBody))
				panic(rec)
			}
		}()
		next.ServeHTTP(recorder, r)

		m.complete(r.Context(), key, recorder.statusCode, recorder.body.Bytes())
	})
}

// complete releases or stores key according to the final status.
func (m *IdempotencyMiddleware) complete(reqCtx context.Context, key string, status int, body []byte) {
	// The request context may already be done; the store must still be told.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), storeTimeout)
	defer cancel()

	if releasable(status) {
		if err := m.store.Release(ctx, key); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
		}
		return
	}

	if !json.Valid(body) {
		body = []byte("null")
	}
	payload, err := json.Marshal(storedResponse{Status: status, Body: body})
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("failed to encode idempotent response")
		return
	}
	if err := m.store.Update(ctx, key, payload, m.ttl); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("failed to store idempotent response")
	}
}

// releasable reports whether status means the ledger was never changed:
// malformed or invalid input, cancellation before the first call, a
// definite rejection, or throttling.
func releasable(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusRequestTimeout, http.StatusUnprocessableEntity, http.StatusTooManyRequests:
		return true
	}
	return false
}

func replay(w http.ResponseWriter, cached []byte) {
	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil || stored.Status == 0 {
		// Written by something other than this middleware; serve it as is.
		stored = storedResponse{Status: http.StatusOK, Body: cached}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(stored.Status)
	w.Write(stored.Body)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
