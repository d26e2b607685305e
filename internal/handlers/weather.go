package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/validation"
	"github.com/benvon/doit/internal/weather"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// WeatherHandler serves the cached weather lookup
type WeatherHandler struct {
	client *weather.Client
	logger *zap.Logger
}

// NewWeatherHandler creates a weather handler. A nil client answers 503.
func NewWeatherHandler(client *weather.Client, logger *zap.Logger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{client: client, logger: logger}
}

// RegisterRoutes registers the weather route
// The router should already have the /api/v1 prefix
func (h *WeatherHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/weather", h.GetWeather).Methods("GET")
}

// GetWeather looks up ?city= or ?lat=&lon=
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Weather lookups are not configured")
		return
	}

	query := r.URL.Query()
	city := strings.TrimSpace(query.Get("city"))
	latStr, lonStr := query.Get("lat"), query.Get("lon")

	var err error
	var snapshot models.WeatherSnapshot
	switch {
	case city != "":
		snapshot, err = h.client.ByCity(r.Context(), city)
	case latStr != "" || lonStr != "":
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "lat and lon must both be numbers")
			return
		}
		snapshot, err = h.client.ByCoords(r.Context(), lat, lon)
	default:
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "city or lat and lon are required")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalid):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		case weather.IsNotFound(err):
			respondJSONError(w, http.StatusNotFound, "Not Found", "Location not found")
		default:
			h.logger.Warn("weather_lookup_failed", zap.Error(err))
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Weather provider unavailable")
		}
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}
