package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/doit/internal/models"
	"github.com/google/go-cmp/cmp"
)

// envelope is the decoded shape shared by respondJSON and respondJSONError
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("Timestamp '%s' is not valid RFC3339: %v", env.Timestamp, err)
	}
	return env
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		data     any
		wantData string
	}{
		{
			name:     "task",
			status:   http.StatusCreated,
			data:     models.Task{ID: "a1", Title: "Buy milk", Priority: models.PriorityLow},
			wantData: `{"id":"a1","title":"Buy milk","priority":"low","completed":false,"important":false,"createdAt":"0001-01-01T00:00:00Z","notification":null}`,
		},
		{
			name:     "theme map",
			status:   http.StatusOK,
			data:     map[string]models.Theme{"theme": models.ThemeDark},
			wantData: `{"theme":"dark"}`,
		},
		{
			name:     "empty list",
			status:   http.StatusOK,
			data:     []models.Task{},
			wantData: `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			env := decodeEnvelope(t, w)
			if !env.Success {
				t.Error("Expected success to be true")
			}
			if diff := cmp.Diff(tt.wantData, string(env.Data)); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRespondJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		errorType string
		message   string
	}{
		{"bad request", http.StatusBadRequest, "Bad Request", "title is required"},
		{"unauthorized", http.StatusUnauthorized, "Unauthorized", "Invalid credentials"},
		{"upstream", http.StatusBadGateway, "Bad Gateway", "weather service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSONError(w, tt.status, tt.errorType, tt.message)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			got := decodeEnvelope(t, w)
			want := envelope{Success: false, Error: tt.errorType, Message: tt.message, Timestamp: got.Timestamp}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("envelope mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxErrorMessageLength+50)
	if got := sanitizeErrorMessage(long); len(got) != maxErrorMessageLength+3 {
		t.Errorf("Expected truncation to %d chars plus ellipsis, got %d", maxErrorMessageLength, len(got))
	}
	if got := sanitizeErrorMessage("short"); got != "short" {
		t.Errorf("Expected short message untouched, got %q", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		limit      int64
		wantStatus int
	}{
		{"valid", `{"title":"Buy milk","priority":"low"}`, 0, 0},
		{"empty body", ``, 0, http.StatusBadRequest},
		{"malformed", `{"title":`, 0, http.StatusBadRequest},
		{"unknown field", `{"title":"x","colour":"red"}`, 0, http.StatusBadRequest},
		{"missing title", `{"priority":"low"}`, 0, http.StatusBadRequest},
		{"bad priority", `{"title":"x","priority":"urgent"}`, 0, http.StatusBadRequest},
		{"too large", `{"title":"` + strings.Repeat("a", 64) + `"}`, 16, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/todos", bytes.NewReader([]byte(tt.body)))
			if tt.limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, tt.limit)
			}

			var req CreateTodoRequest
			err := decodeJSON(r, &req)
			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if req.Title != "Buy milk" {
					t.Errorf("Expected title to be decoded, got %q", req.Title)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected an error")
			}
			respondDecodeError(w, err)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
