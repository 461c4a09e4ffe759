package middleware

import (
	"net/http"
)

// Allower reports whether one more request may proceed now. *rate.Limiter satisfies it.
type Allower interface {
	Allow() bool
}

// RateLimit rejects requests with 429 while limiter refuses them.
// A nil limiter lets everything through.
func RateLimit(limiter Allower) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				rateLimited.Inc()
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				// Do not call next.ServeHTTP
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
