package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/benvon/doit/internal/models"
	"github.com/benvon/doit/internal/weather"
)

const parisPayload = `{
	"name": "Paris",
	"sys": {"country": "FR"},
	"main": {"temp": 18.2, "humidity": 55},
	"weather": [{"description": "clear sky", "icon": "01d"}],
	"wind": {"speed": 2.6}
}`

// fakeProvider answers every city except "Atlantis", which it does not know,
// and "Boom", which fails upstream.
func fakeProvider(t *testing.T) (*atomic.Int32, *weather.Client) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("q") {
		case "Atlantis":
			w.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
		case "Boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = fmt.Fprint(w, `{"cod":"500","message":"internal error"}`)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, parisPayload)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := weather.NewClient(weather.Config{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return &hits, client
}

func TestWeatherHandler_GetWeather(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"city", "?city=Paris", http.StatusOK},
		{"coordinates", "?lat=48.85&lon=2.35", http.StatusOK},
		{"unknown city", "?city=Atlantis", http.StatusNotFound},
		{"provider failure", "?city=Boom", http.StatusBadGateway},
		{"no query", "", http.StatusBadRequest},
		{"blank city", "?city=%20%20", http.StatusBadRequest},
		{"non-numeric coordinates", "?lat=north&lon=2", http.StatusBadRequest},
		{"missing longitude", "?lat=48.85", http.StatusBadRequest},
		{"out of range", "?lat=123&lon=2", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, client := fakeProvider(t)
			env := newTestEnv(t, withWeather(client))

			w := env.call(t, http.MethodGet, "/api/v1/weather"+tt.query, "alice", "", nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var snapshot models.WeatherSnapshot
				decodeData(t, w, &snapshot)
				if snapshot.City != "Paris" || snapshot.Country != "FR" || snapshot.Humidity != 55 {
					t.Errorf("Unexpected snapshot: %+v", snapshot)
				}
			}
		})
	}
}

func TestWeatherHandler_CachesSuccess(t *testing.T) {
	t.Parallel()

	hits, client := fakeProvider(t)
	env := newTestEnv(t, withWeather(client))

	for i := 0; i < 3; i++ {
		if w := env.call(t, http.MethodGet, "/api/v1/weather?city=Paris", "alice", "", nil); w.Code != http.StatusOK {
			t.Fatalf("lookup %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("Expected one provider call, got %d", got)
	}

	for i := 0; i < 2; i++ {
		env.call(t, http.MethodGet, "/api/v1/weather?city=Atlantis", "alice", "", nil)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("Expected failures to reach the provider every time, got %d calls", got)
	}
}

func TestWeatherHandler_NotConfigured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := env.call(t, http.MethodGet, "/api/v1/weather?city=Paris", "alice", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a weather client, got %d", w.Code)
	}
}
