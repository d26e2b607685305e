package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// ServiceName names the service in traces
const ServiceName = "doit-api"

// eventsPath is exempt from the request timeout
const eventsPath = "/api/v1/events"

// RouterConfig carries everything the HTTP surface needs
type RouterConfig struct {
	App     *app.App
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// Origins allowed by CORS; see middleware.AllowedOrigins
	Origins []string
	// RateLimit wraps the /api/v1 routes when set
	RateLimit      func(http.Handler) http.Handler
	EnableHSTS     bool
	Tracing        bool
	RequestTimeout time.Duration
	// Checks are probed by /healthz?mode=extended next to the store
	Checks map[string]Pinger
	// Now defaults to time.Now
	Now func() time.Time
}

// NewRouter assembles routes and middleware. Security headers and CORS wrap
// the whole router so they also apply to preflights and unknown paths.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	r := mux.NewRouter()
	r.NotFoundHandler = RedirectUnknown()

	// first registered runs outermost
	if cfg.Tracing {
		r.Use(otelmux.Middleware(ServiceName))
	}
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.Audit(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize, log))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout, eventsPath))

	health := NewHealthChecker(cfg.App.Store(), log)
	for name, check := range cfg.Checks {
		health.AddCheck(name, check)
	}
	r.HandleFunc("/healthz", health.HealthCheck).Methods("GET")
	r.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	NewOpenAPIHandler().RegisterRoutes(r)

	withSession := middleware.Session(cfg.App, log)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(withSession)
	if cfg.RateLimit != nil {
		api.Use(cfg.RateLimit)
	}
	NewAuthHandler(cfg.Metrics, log).RegisterRoutes(api.PathPrefix("/auth").Subrouter())
	NewWeatherHandler(cfg.App.Weather(), log).RegisterRoutes(api)
	NewThemeHandler().RegisterRoutes(api)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.RequireAuth(log))
	NewTodoHandler(cfg.Metrics, log, WithTodoClock(now)).RegisterRoutes(protected.PathPrefix("/todos").Subrouter())
	if cfg.Bus != nil {
		NewEventsHandler(cfg.Bus, cfg.Metrics, log, 0).RegisterRoutes(protected)
	}

	pages := r.PathPrefix("/").Subrouter()
	pages.Use(withSession)
	NewViewHandler(now).RegisterRoutes(pages)

	var h http.Handler = r
	h = middleware.CORS(cfg.Origins)(h)
	h = middleware.SecurityHeaders(cfg.EnableHSTS)(h)
	return h
}
