package middleware

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Headers a browser client needs to read to back off from the limiters.
var rateLimitHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}

// CORSMiddleware allows the configured storefront origins. Outside production,
// or with no origins configured, any origin is accepted.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	origins := allowedOrigins
	if isDevelopment || len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   rateLimitHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// SecureHeaders sets the browser hardening headers sent on every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		next.ServeHTTP(w, r)
	})
}

// DefaultMiddlewareStack returns the chi middleware every route shares.
// Forwarded client addresses are honored only from trustedProxies.
// Panics are handled by ErrorHandlingMiddleware so the envelope stays JSON.
func DefaultMiddlewareStack(trustedProxies []netip.Prefix) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		TrustedRealIP(trustedProxies),
		middleware.Compress(5),
		SecureHeaders,
	}
}
