package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/doit/internal/app"
	"github.com/benvon/doit/internal/auth"
	"github.com/benvon/doit/internal/config"
	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/handlers"
	"github.com/benvon/doit/internal/logger"
	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/middleware"
	"github.com/benvon/doit/internal/queue"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/telemetry"
	"github.com/benvon/doit/internal/weather"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Service: handlers.ServiceName, Debug: debugMode, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("starting_server",
		zap.String("server_port", cfg.ServerPort),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("weather_cache_backend", cfg.WeatherCacheBackend),
		zap.Bool("rabbitmq_enabled", cfg.RabbitMQURL != ""),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.Config{
			ServiceName: handlers.ServiceName,
			Endpoint:    cfg.OTELEndpoint,
			Insecure:    cfg.OTELInsecure,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	// one redis client serves the store, the weather cache and the rate limiter
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}

	store, err := openStore(ctx, cfg, redisClient, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("failed_to_close_store", zap.Error(err))
		}
	}()

	m := metrics.New()
	bus := events.NewBus(zapLogger)

	checks := map[string]handlers.Pinger{}
	if redisClient != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	if cfg.RabbitMQURL != "" {
		eventQueue, err := queue.DialWithRetry(ctx, cfg.RabbitMQURL, queue.DefaultDialAttempts, zapLogger)
		if err != nil {
			return err
		}
		defer func() {
			if err := eventQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_rabbitmq")
		checks["rabbitmq"] = handlers.PingFunc(eventQueue.HealthCheck)
		go events.Forward(ctx, bus, eventQueue, zapLogger)
	}

	weatherClient, err := newWeatherClient(cfg, redisClient, m, zapLogger)
	if err != nil {
		return err
	}

	issuer, err := auth.NewIssuer([]byte(cfg.TokenSecret))
	if err != nil {
		return err
	}
	if cfg.TokenSecret == "" {
		zapLogger.Warn("token_secret_not_configured_sessions_reset_on_restart")
	}

	loc, err := cfg.TimeLocation()
	if err != nil {
		return err
	}

	application, err := app.New(app.Options{
		Store:       store,
		Issuer:      issuer,
		Weather:     weatherClient,
		Publisher:   bus,
		Logger:      zapLogger,
		LoginDelay:  cfg.LoginDelay,
		Location:    loc,
		MaxSessions: cfg.MaxSessions,
	})
	if err != nil {
		return err
	}

	rateLimit, err := middleware.RateLimit(cfg.RateLimit, redisClient, zapLogger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: handlers.NewRouter(handlers.RouterConfig{
			App:            application,
			Bus:            bus,
			Metrics:        m,
			Logger:         zapLogger,
			Origins:        middleware.AllowedOrigins(cfg.FrontendURL),
			RateLimit:      rateLimit,
			EnableHSTS:     cfg.EnableHSTS,
			Tracing:        cfg.OTELEnabled,
			RequestTimeout: cfg.RequestTimeout,
			Checks:         checks,
		}),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// event streams clear their own write deadline
		WriteTimeout:   cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}

	zapLogger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zapLogger.Info("server_exited")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, zapLogger *zap.Logger) (storage.Store, error) {
	if cfg.StoreBackend == storage.BackendRedis && redisClient != nil {
		return storage.NewRedisStoreFromClient(redisClient), nil
	}
	store, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.StoreBackend,
		Path:        cfg.StorePath,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		Logger:      zapLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	return store, nil
}

// newWeatherClient returns nil when no API key is configured; the weather
// route then answers 503
func newWeatherClient(cfg *config.Config, redisClient *redis.Client, m *metrics.Metrics, zapLogger *zap.Logger) (*weather.Client, error) {
	if cfg.WeatherAPIKey == "" {
		zapLogger.Warn("weather_api_key_not_configured")
		return nil, nil
	}

	var cache weather.Cache
	if cfg.WeatherCacheBackend == "redis" && redisClient != nil {
		cache = weather.NewRedisCache(redisClient, cfg.WeatherCacheTTL)
	}

	client, err := weather.NewClient(weather.Config{
		BaseURL:       cfg.WeatherBaseURL,
		APIKey:        cfg.WeatherAPIKey,
		CacheTTL:      cfg.WeatherCacheTTL,
		Cache:         cache,
		RatePerMinute: cfg.WeatherRatePerMinute,
		Logger:        zapLogger,
		Metrics:       m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weather client: %w", err)
	}
	return client, nil
}
