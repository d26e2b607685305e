package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/doit/internal/events"
)

func TestEventsHandler_StreamsOwnEvents(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.login(t, "alice")

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("X-Client-ID", "alice")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected text/event-stream, got %q", ct)
	}

	// bob's change must not reach alice's stream
	post := func(client string) {
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/v1/theme/toggle", nil)
		r.Header.Set("X-Client-ID", client)
		res, err := srv.Client().Do(r)
		if err != nil {
			t.Errorf("toggle for %s failed: %v", client, err)
			return
		}
		_ = res.Body.Close()
	}
	post("bob")
	post("alice")

	scanner := bufio.NewScanner(resp.Body)
	var eventLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
			continue
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var event events.Event
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				t.Fatalf("Failed to decode frame: %v", err)
			}
			if eventLine != "event: theme.changed" {
				t.Errorf("Expected a theme.changed frame, got %q", eventLine)
			}
			if event.ClientID != "alice" {
				t.Errorf("Expected alice's event first, got one for %q", event.ClientID)
			}
			return
		}
	}
	t.Fatalf("Stream ended before an event arrived: %v", scanner.Err())
}

func TestEventsHandler_RequiresToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if w := env.call(t, http.MethodGet, "/api/v1/events", "alice", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", w.Code)
	}
}
