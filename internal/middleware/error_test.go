package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/doit/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler_NoPanic(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	ErrorHandler(zap.NewNop())(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestErrorHandler_PanicRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "string panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("test panic")
			},
		},
		{
			name: "runtime panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var nilMap map[string]string
				nilMap["key"] = "value"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/test", nil)
			w := httptest.NewRecorder()
			ErrorHandler(zap.NewNop())(tt.handler).ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("Expected status 500, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}

			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Success {
				t.Error("Expected success to be false")
			}
			if body.Error != "Internal Server Error" {
				t.Errorf("Expected error 'Internal Server Error', got '%s'", body.Error)
			}
			if body.Path != "/test" {
				t.Errorf("Expected path '/test', got '%s'", body.Path)
			}
			if body.Timestamp == "" {
				t.Error("Expected timestamp to be set")
			}
		})
	}
}

func TestErrorHandler_PanicAfterResponseStarted(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late panic")
	})

	req := httptest.NewRequest("GET", "/api/v1/todos", nil)
	req.Header.Set(request.ClientIDHeader, "alice")
	w := httptest.NewRecorder()
	ErrorHandler(zap.New(core))(handler).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected the original status to stand, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected no error body after the response started, got %q", w.Body.String())
	}

	entries := logs.FilterMessage("panic_recovered").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one panic_recovered entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["response_started"] != true || fields["client_id"] != "alice" {
		t.Errorf("unexpected log fields %v", fields)
	}
}
