package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/ratelimit"

	"go.uber.org/zap"
)

// RateLimitMiddleware admits requests through limiter, keyed by user ID when
// authenticated and by client IP otherwise.
func RateLimitMiddleware(limiter ratelimit.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := "ip:" + ClientIP(r)
			if userID, ok := GetUserID(r.Context()); ok {
				clientID = "user:" + userID.String()
			}

			res, err := limiter.Allow(r.Context(), clientID)
			if err != nil {
				logger.Error("Failed to check rate limit",
					zap.Error(err),
					zap.String("client_id", clientID),
				)
				// On backend error, allow request to proceed
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int("limit", res.Limit),
				)

				retryAfter := RetryAfterSeconds(res.RetryAfter)
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.RetryAfter).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				RespondWithJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Message:    "Too many requests. Please try again later.",
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RetryAfterSeconds rounds a wait up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// ClientIP is the request's remote address without the port. TrustedRealIP has
// already replaced it with the forwarded address when a trusted proxy sent it.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
