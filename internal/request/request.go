package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/storage"
)

// ClientIDHeader identifies which client namespace a request belongs to
const ClientIDHeader = "X-Client-ID"

type contextKey string

const sessionContextKey contextKey = "session"

// SessionContextKey returns the context key used for the session. Exposed for tests that inject non-session values.
func SessionContextKey() contextKey { return sessionContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// ClientID returns the client namespace named by the X-Client-ID header,
// falling back to the default namespace. The value is not validated here.
func ClientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" {
		return id
	}
	return storage.DefaultNamespace
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithSession returns a context with the client session attached.
func WithSession(ctx context.Context, session *app.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the session from the request context, or nil if missing or wrong type.
func SessionFromContext(r *http.Request) *app.Session {
	s, _ := r.Context().Value(sessionContextKey).(*app.Session)
	return s
}
