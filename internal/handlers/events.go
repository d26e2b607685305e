package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/metrics"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultHeartbeat keeps idle event streams open through proxies
const DefaultHeartbeat = 15 * time.Second

// EventsHandler streams the state-change events of the calling client as
// server-sent events.
type EventsHandler struct {
	bus       *events.Bus
	metrics   *metrics.Metrics
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewEventsHandler creates an events handler. heartbeat <= 0 uses DefaultHeartbeat.
func NewEventsHandler(bus *events.Bus, m *metrics.Metrics, logger *zap.Logger, heartbeat time.Duration) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{bus: bus, metrics: m, logger: logger, heartbeat: heartbeat}
}

// RegisterRoutes registers the stream route
// The router should already have the /api/v1 prefix
func (h *EventsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.Stream).Methods("GET")
}

// Stream writes one SSE frame per event until the client goes away
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// the server write timeout would otherwise cut the stream
	_ = rc.SetWriteDeadline(time.Time{})
	ch, cancel := h.bus.Subscribe(64)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event_stream_not_flushable", zap.Error(err))
		return
	}

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case event, open := <-ch:
			if !open {
				return
			}
			if event.ClientID != session.ClientID {
				continue
			}
			if err := writeEvent(w, event); err != nil {
				h.logger.Debug("event_stream_write_failed", zap.String("client_id", session.ClientID), zap.Error(err))
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
