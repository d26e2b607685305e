package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultMaxRequestSize bounds request bodies. Task payloads are a title and
// a priority, so 64KB is generous.
const DefaultMaxRequestSize int64 = 64 << 10

// MaxRequestSize answers 413 up front when Content-Length already exceeds
// maxBytes and caps the body reader otherwise, so chunked uploads fail in
// the JSON decoder instead.
func MaxRequestSize(maxBytes int64, logger *zap.Logger) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	message := fmt.Sprintf("Request body exceeds %d bytes", maxBytes)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", message, logger)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
