package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/doit/internal/auth"
	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AuthHandler exposes the simulated login of each client session
type AuthHandler struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(m *metrics.Metrics, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{metrics: m, logger: logger}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse carries the bearer token for later requests
type LoginResponse struct {
	Token  string            `json:"token"`
	User   *models.User      `json:"user"`
	Status models.LoadStatus `json:"status"`
}

// SessionResponse describes the auth state without the token
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
	auth.State
}

// Login runs the simulated login for the calling client
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	state, err := session.Auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		h.metrics.Login("succeeded")
		respondJSON(w, http.StatusOK, LoginResponse{Token: state.Token, User: state.User, Status: state.Status})
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.metrics.Login("failed")
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.metrics.Login("cancelled")
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Login was interrupted")
	default:
		h.metrics.Login("error")
		h.logger.Error("login_error", zap.String("client_id", session.ClientID), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to sign in")
	}
}

// Logout clears the session of the calling client. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	state := session.Auth.Logout(r.Context())
	respondJSON(w, http.StatusOK, SessionResponse{Authenticated: false, State: state})
}

// GetMe returns the auth state of the calling client
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	state := session.Auth.State()
	respondJSON(w, http.StatusOK, SessionResponse{Authenticated: state.IsAuthenticated(), State: state})
}
