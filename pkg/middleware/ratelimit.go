package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/AnvithShetty10/expense-share/pkg/response"
)

// RateLimit limits requests per client IP with the given limiter.
// Limiter failures are logged and the request is let through.
func RateLimit(l *limiter.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			lctx, err := l.Get(r.Context(), ip)
			if err != nil {
				logger.Error("rate limit check failed", zap.String("ip", ip), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.Int64("limit", lctx.Limit))
				response.TooManyRequests(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the address chi's RealIP middleware already resolved
// into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
