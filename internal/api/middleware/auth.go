package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/jpapi/internal/api/render"
	"github.com/good-yellow-bee/jpapi/internal/metrics"
	"github.com/good-yellow-bee/jpapi/internal/models"
	"github.com/good-yellow-bee/jpapi/internal/query"
	"github.com/good-yellow-bee/jpapi/internal/storage"
)

// Context keys for storing request information.
type contextKey string

const apiKeyKey contextKey = "api_key"

// APIKeyParam is the query parameter carrying the consumer's key.
const APIKeyParam = "api_key"

// lastUsedResolution bounds how often a key's last-used time is written.
const lastUsedResolution = time.Minute

// GetAPIKey returns the authenticated key from context, or nil.
func GetAPIKey(ctx context.Context) *models.APIKey {
	if k, ok := ctx.Value(apiKeyKey).(*models.APIKey); ok {
		return k
	}
	return nil
}

// WithAPIKey stores key in ctx.
func WithAPIKey(ctx context.Context, key *models.APIKey) context.Context {
	return context.WithValue(ctx, apiKeyKey, key)
}

func unauthorized(w http.ResponseWriter, r *http.Request, result, message string) {
	metrics.AuthAttemptsTotal.WithLabelValues(result).Inc()
	render.Error(w, render.FormatFromPath(r.URL.Path), http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// APIKeyAuth returns middleware that requires an active API key in the
// api_key query parameter.
func APIKeyAuth(keys storage.APIKeyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := zerolog.Ctx(ctx)

			plain := query.SanitizeValue(r.URL.Query().Get(APIKeyParam))
			if plain == "" {
				unauthorized(w, r, "missing", "You are missing your API key.")
				return
			}

			key, err := keys.GetByKeyHash(ctx, models.HashAPIKey(plain))
			if err != nil {
				log.Error().Err(err).Msg("api key lookup failed")
				metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
				render.Error(w, render.FormatFromPath(r.URL.Path),
					http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}
			if key == nil {
				unauthorized(w, r, "unknown", "The provided API key is invalid.")
				return
			}

			switch key.Status {
			case models.APIKeyActive:
			case models.APIKeyPending:
				unauthorized(w, r, "pending", "The provided API key has not been activated.")
				return
			default:
				unauthorized(w, r, "suspended", "The provided API key has been suspended.")
				return
			}

			if key.LastUsedAt == nil || time.Since(*key.LastUsedAt) > lastUsedResolution {
				if err := keys.TouchLastUsed(ctx, key.ID); err != nil {
					log.Warn().Err(err).Str("key_id", key.ID).Msg("failed to record api key use")
				}
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			keyLog := log.With().Str("key_id", key.ID).Logger()
			ctx = keyLog.WithContext(WithAPIKey(ctx, key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
