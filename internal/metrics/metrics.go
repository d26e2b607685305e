package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	weatherLookups  *prometheus.CounterVec
	weatherFetches  *prometheus.CounterVec
	logins          *prometheus.CounterVec
	tasksChanged    *prometheus.CounterVec
	sseClients      prometheus.Gauge
	remindersSent   prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "doit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		weatherLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doit_weather_lookups_total",
				Help: "Weather lookups by cache result",
			},
			[]string{"result"},
		),
		weatherFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doit_weather_fetches_total",
				Help: "Outbound weather provider calls by outcome",
			},
			[]string{"outcome"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doit_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		tasksChanged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doit_task_mutations_total",
				Help: "Task mutations by operation",
			},
			[]string{"op"},
		),
		sseClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "doit_event_stream_clients",
				Help: "Open server-sent event streams",
			},
		),
		remindersSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "doit_reminders_sent_total",
				Help: "Due reminders announced by the reminder worker",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.weatherLookups,
		m.weatherFetches,
		m.logins,
		m.tasksChanged,
		m.sseClients,
		m.remindersSent,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. path should be the
// route template, not the raw URL, to keep cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// WeatherLookup records a cache hit or miss
func (m *Metrics) WeatherLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.weatherLookups.WithLabelValues(result).Inc()
}

// WeatherFetch records the outcome of a provider call (ok, not_found, error)
func (m *Metrics) WeatherFetch(outcome string) {
	if m == nil {
		return
	}
	m.weatherFetches.WithLabelValues(outcome).Inc()
}

// Login records a login attempt outcome (succeeded, failed)
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// TaskMutation records a task container operation
func (m *Metrics) TaskMutation(op string) {
	if m == nil {
		return
	}
	m.tasksChanged.WithLabelValues(op).Inc()
}

// StreamOpened increments the open event stream gauge
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

// StreamClosed decrements the open event stream gauge
func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}

// ReminderSent records one announced reminder
func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}
