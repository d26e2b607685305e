package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by Open
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options selects and configures a Store backend
type Options struct {
	Backend     string
	Path        string
	RedisURL    string
	DatabaseURL string
	Logger      *zap.Logger
}

// Open builds the Store named by opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Path, opts.Logger)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
