package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KVRepository handles key-value rows in kv_store
type KVRepository struct {
	db *DB
}

// NewKVRepository creates a new key-value repository
func NewKVRepository(db *DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get returns the value stored for namespace/key and whether the row exists
func (r *KVRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM kv_store
		WHERE namespace = $1 AND key = $2
	`

	var value string
	err := r.db.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, true, nil
}

// Upsert inserts or replaces the value for namespace/key
func (r *KVRepository) Upsert(ctx context.Context, namespace, key, value string) error {
	query := `
		INSERT INTO kv_store (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, namespace, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}

	return nil
}

// Delete removes the row for namespace/key. A missing row is not an error.
func (r *KVRepository) Delete(ctx context.Context, namespace, key string) error {
	query := `DELETE FROM kv_store WHERE namespace = $1 AND key = $2`

	if _, err := r.db.ExecContext(ctx, query, namespace, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

// Namespaces returns every namespace with at least one row, in order
func (r *KVRepository) Namespaces(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT namespace FROM kv_store ORDER BY namespace`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("failed to scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate namespaces: %w", err)
	}
	return namespaces, nil
}
