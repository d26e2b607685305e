package middleware

import (
	"errors"
	"net/http"

	"github.com/benvon/doit/internal/app"
	logpkg "github.com/benvon/doit/internal/logger"
	"github.com/benvon/doit/internal/request"
	"github.com/benvon/doit/internal/validation"
	"go.uber.org/zap"
)

// Session resolves the client session named by X-Client-ID and attaches it
// to the request context. Unknown clients get a fresh session.
func Session(a *app.App, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := a.Session(r.Context(), request.ClientID(r))
			if err != nil {
				if errors.Is(err, validation.ErrInvalid) {
					respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Invalid client id", logger)
					return
				}
				logger.Error("session_unavailable",
					zap.String("client_id", logpkg.SanitizeClientID(request.ClientID(r))),
					zap.Error(err),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Session unavailable", logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(request.WithSession(r.Context(), session)))
		})
	}
}

// RequireAuth rejects requests whose bearer token is not the current token
// of their client session. It must run after Session.
func RequireAuth(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := request.SessionFromContext(r)
			if session == nil {
				logger.Error("session_missing_from_context", zap.String("path", logpkg.SanitizePath(r.URL.Path)))
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Session unavailable", logger)
				return
			}

			token := request.BearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="doit"`)
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing bearer token", logger)
				return
			}
			if !session.Auth.Authorize(token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="doit", error="invalid_token"`)
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
