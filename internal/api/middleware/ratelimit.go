package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/windvane/windvane/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// StandardRateLimit applies to the data query endpoints. Renderers poll on
// the order of once per ten seconds, so 120 req/min leaves ample headroom.
var StandardRateLimit = RateLimitConfig{
	RequestLimit: 120,
	WindowLength: time.Minute,
}

// RateLimitByIP creates a rate limiter middleware using client IP address.
// Uses X-Forwarded-For header if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	problem := models.NewTooManyRequests(requestID, "rate limit exceeded, slow down polling")
	problem.Instance = r.URL.Path
	problem.Write(w)
}
