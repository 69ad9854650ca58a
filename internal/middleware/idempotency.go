package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	"github.com/fusionbox/dinero/internal/infrastructure/redis"
)

const maxIdempotencyBodySize = 1 << 20

// IdempotencyStore is the storage behind Idempotency.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*redis.IdempotencyEntry, error)
	Save(ctx context.Context, entry *redis.IdempotencyEntry) error
	Claim(ctx context.Context, key string) (func(context.Context) error, bool, error)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped by the authenticated subject. A key whose first request
// is still running gets 409. Responses with status 5xx are not stored so
// the client can retry them.
func Idempotency(store IdempotencyStore, metrics *observability.Metrics, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key = scopedKey(r, key)

			entry, err := store.Get(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency lookup failed, processing request")
			}
			if entry != nil {
				if metrics != nil {
					metrics.IdempotentReplays.WithLabelValues(routePattern(r)).Inc()
				}
				if entry.ContentType != "" {
					w.Header().Set("Content-Type", entry.ContentType)
				}
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.Status)
				w.Write(entry.Body)
				return
			}

			release, ok, err := store.Claim(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency claim failed, processing request")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "a request with this idempotency key is in progress",
					"code":  "idempotency_conflict",
				})
				return
			}
			defer func() {
				if err := release(context.WithoutCancel(r.Context())); err != nil {
					logger.Warn().Err(err).Msg("idempotency release failed")
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 500 && !rec.bodyTruncated {
				err := store.Save(context.WithoutCancel(r.Context()), &redis.IdempotencyEntry{
					Key:         key,
					Status:      rec.statusCode,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				})
				if err != nil {
					logger.Warn().Err(err).Msg("idempotency save failed")
				}
			}
		})
	}
}

func scopedKey(r *http.Request, key string) string {
	if claims, ok := ClaimsFrom(r.Context()); ok {
		return claims.Subject + ":" + key
	}
	return "anonymous:" + key
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
