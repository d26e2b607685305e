package middleware

import (
	"net/http"
	"strings"
	"time"
)

// DefaultRequestTimeout bounds a request. The simulated login delay is well inside it.
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces timeout on every request except those under one of the
// exempt path prefixes. Long-lived streams must be exempt: TimeoutHandler
// buffers the response and does not support flushing.
func Timeout(timeout time.Duration, exempt ...string) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		limited := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			limited.ServeHTTP(w, r)
		})
	}
}
