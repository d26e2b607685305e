package storage

import (
	"context"
	"fmt"

	"github.com/benvon/doit/internal/database"
)

// PostgresStore keeps namespaces as rows of the kv_store table
type PostgresStore struct {
	db   *database.DB
	repo *database.KVRepository
}

// NewPostgresStore connects to Postgres and ensures the kv_store table exists
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := database.New(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStore{db: db, repo: database.NewKVRepository(db)}, nil
}

// Get implements Store.Get
func (s *PostgresStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := validateAddress(namespace, key); err != nil {
		return "", false, err
	}
	return s.repo.Get(ctx, namespace, key)
}

// Set implements Store.Set
func (s *PostgresStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := validateAddress(namespace, key); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, namespace, key, value)
}

// Delete implements Store.Delete
func (s *PostgresStore) Delete(ctx context.Context, namespace, key string) error {
	if err := validateAddress(namespace, key); err != nil {
		return err
	}
	return s.repo.Delete(ctx, namespace, key)
}

// Namespaces implements Store.Namespaces
func (s *PostgresStore) Namespaces(ctx context.Context) ([]string, error) {
	return s.repo.Namespaces(ctx)
}

// Ping implements Store.Ping
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.Close
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
