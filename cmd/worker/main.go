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

	"github.com/benvon/doit/internal/config"
	"github.com/benvon/doit/internal/events"
	"github.com/benvon/doit/internal/logger"
	"github.com/benvon/doit/internal/metrics"
	"github.com/benvon/doit/internal/queue"
	"github.com/benvon/doit/internal/storage"
	"github.com/benvon/doit/internal/workers"
	"go.uber.org/zap"
)

const serviceName = "doit-worker"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9091)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{Service: serviceName, Debug: debugMode, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	if err := run(cfg, *metricsAddr, zapLogger); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Fatal("worker_failed", zap.Error(err))
	}
	zapLogger.Info("worker_stopped")
}

func run(cfg *config.Config, metricsAddr string, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StoreBackend == storage.BackendMemory {
		return fmt.Errorf("the reminder worker needs a shared store, not %q", cfg.StoreBackend)
	}
	store, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.StoreBackend,
		Path:        cfg.StorePath,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		Logger:      zapLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("failed_to_close_store", zap.Error(err))
		}
	}()

	var sink events.Sink = workers.LogSink{Logger: zapLogger}
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
		sink = eventQueue
		zapLogger.Info("connected_to_rabbitmq")
	}

	m := metrics.New()
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLogger.Error("metrics_server_failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	zapLogger.Info("worker_started",
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("interval", cfg.ReminderInterval),
		zap.Bool("rabbitmq_enabled", cfg.RabbitMQURL != ""),
	)

	scanner := workers.NewReminderScanner(store, sink, zapLogger, m)
	return scanner.Run(ctx, cfg.ReminderInterval)
}
