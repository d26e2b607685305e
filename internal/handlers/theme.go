package handlers

import (
	"net/http"

	"github.com/benvon/doit/internal/models"
	"github.com/gorilla/mux"
)

// ThemeHandler reads and changes the persisted theme of a client
type ThemeHandler struct{}

// NewThemeHandler creates a theme handler
func NewThemeHandler() *ThemeHandler {
	return &ThemeHandler{}
}

// RegisterRoutes registers theme routes
// The router should already have the /api/v1 prefix
func (h *ThemeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/theme", h.GetTheme).Methods("GET")
	r.HandleFunc("/theme", h.SetTheme).Methods("PUT")
	r.HandleFunc("/theme/toggle", h.ToggleTheme).Methods("POST")
}

// ThemeRequest represents a theme change
type ThemeRequest struct {
	Theme models.Theme `json:"theme" validate:"required,theme"`
}

// ThemeResponse carries the current theme
type ThemeResponse struct {
	Theme models.Theme `json:"theme"`
}

// GetTheme returns the current theme
func (h *ThemeHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ThemeResponse{Theme: session.Theme()})
}

// SetTheme replaces the theme
func (h *ThemeHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req ThemeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	theme, err := session.SetTheme(r.Context(), req.Theme)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ThemeResponse{Theme: theme})
}

// ToggleTheme flips between dark and light
func (h *ThemeHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ThemeResponse{Theme: session.ToggleTheme(r.Context())})
}
