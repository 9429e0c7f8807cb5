package middleware

import (
	"net"
	"net/http"
	"trendsetter/storage/cache"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
)

// RateLimit caps requests per client IP. Limiter failures let the request
// through rather than locking everyone out.
func RateLimit(limiter cache.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.Warningf("Error checking rate limit: %v", err)
			} else if !allowed {
				utils.SendError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
