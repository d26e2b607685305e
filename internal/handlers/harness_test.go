package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/auth"
	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/weather"
)

// testEnv is a full router over an in-memory store
type testEnv struct {
	app     *app.App
	bus     *events.Bus
	metrics *metrics.Metrics
	handler http.Handler
}

type envOption func(*app.Options, *RouterConfig)

func withWeather(c *weather.Client) envOption {
	return func(o *app.Options, _ *RouterConfig) { o.Weather = c }
}

func withNow(now func() time.Time) envOption {
	return func(_ *app.Options, rc *RouterConfig) { rc.Now = now }
}

func withTracing() envOption {
	return func(_ *app.Options, rc *RouterConfig) { rc.Tracing = true }
}

func withCheck(name string, p Pinger) envOption {
	return func(_ *app.Options, rc *RouterConfig) {
		if rc.Checks == nil {
			rc.Checks = map[string]Pinger{}
		}
		rc.Checks[name] = p
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	issuer, err := auth.NewIssuer(nil)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	bus := events.NewBus(nil)
	m := metrics.New()

	appOpts := app.Options{
		Store:     storage.NewMemoryStore(),
		Issuer:    issuer,
		Publisher: bus,
		Location:  time.UTC,
	}
	rc := RouterConfig{Bus: bus, Metrics: m, Origins: []string{"http://localhost:3000"}}
	for _, opt := range opts {
		opt(&appOpts, &rc)
	}

	a, err := app.New(appOpts)
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	rc.App = a

	return &testEnv{app: a, bus: bus, metrics: m, handler: NewRouter(rc)}
}

// call performs one request as client; token may be empty
func (e *testEnv) call(t *testing.T, method, path, client, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client != "" {
		req.Header.Set("X-Client-ID", client)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// login signs client in and returns its bearer token
func (e *testEnv) login(t *testing.T, client string) string {
	t.Helper()

	w := e.call(t, http.MethodPost, "/api/v1/auth/login", client, "", LoginRequest{Email: auth.DemoEmail, Password: auth.DemoPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	decodeData(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("Expected a token from login")
	}
	return resp.Token
}

// decodeData unwraps the data field of a success envelope into dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope %q: %v", w.Body.String(), err)
	}
	if !envelope.Success {
		t.Fatalf("Expected a success envelope, got %s", w.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

// errorMessage returns the message of an error envelope
func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode error envelope %q: %v", w.Body.String(), err)
	}
	if envelope.Success {
		t.Fatalf("Expected an error envelope, got %s", w.Body.String())
	}
	return envelope.Message
}
