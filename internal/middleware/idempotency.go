package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/store"
)

const maxIdempotencyBodySize = 1 << 20

// IdempotentResponse is a stored reply replayed for a repeated Idempotency-Key.
type IdempotentResponse struct {
	Key       string    `json:"key"`
	Status    int       `json:"status"`
	Body      string    `json:"body"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Idempotency replays the first response stored for a request's
// Idempotency-Key header. Requests without the header pass through.
// Server errors are not stored so the client can retry them.
func Idempotency(s store.Store, ttl time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	responses := store.NewCollection(s, store.KindIdempotency, func(r *IdempotentResponse) string { return r.Key })

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			key = r.Method + " " + r.URL.Path + " " + key

			entry, err := responses.Get(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
			}
			if entry != nil && time.Now().Before(entry.ExpiresAt) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.Status)
				w.Write([]byte(entry.Body))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 500 || rec.bodyTruncated {
				return
			}
			stored := &IdempotentResponse{
				Key:       key,
				Status:    rec.statusCode,
				Body:      rec.body.String(),
				ExpiresAt: time.Now().Add(ttl),
			}
			if err := responses.Save(r.Context(), stored); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("idempotency store failed")
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
