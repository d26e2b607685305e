package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// corruptSuffix is appended to a namespace file that could not be parsed
// when a write moves it aside
const corruptSuffix = ".corrupt"

var errCorruptFile = errors.New("corrupt store file")

const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 50 * time.Millisecond
)

// FileStore persists each namespace as a JSON object in its own file under
// dir. Writers take an exclusive flock on a sibling lock file so a CLI and a
// server sharing the same directory never interleave writes.
//
// Reading an unparsable file is an error. Writing to one moves it aside as
// <namespace>.json.corrupt and starts the namespace over, so a damaged file
// costs its old contents but never blocks new ones.
type FileStore struct {
	dir string
	mu  sync.Mutex
	log *zap.Logger
}

// NewFileStore creates a file-backed store rooted at dir, creating it if needed
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}

// Get implements Store.Get
func (s *FileStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := validateAddress(namespace, key); err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	err := s.withLock(ctx, namespace, func() error {
		data, err := s.read(namespace)
		if err != nil {
			return err
		}
		value, found = data[key]
		return nil
	})
	return value, found, err
}

// Set implements Store.Set
func (s *FileStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := validateAddress(namespace, key); err != nil {
		return err
	}
	return s.withLock(ctx, namespace, func() error {
		data, err := s.readForWrite(namespace)
		if err != nil {
			return err
		}
		data[key] = value
		return s.write(namespace, data)
	})
}

// Delete implements Store.Delete
func (s *FileStore) Delete(ctx context.Context, namespace, key string) error {
	if err := validateAddress(namespace, key); err != nil {
		return err
	}
	return s.withLock(ctx, namespace, func() error {
		data, err := s.readForWrite(namespace)
		if err != nil {
			return err
		}
		if _, ok := data[key]; !ok {
			return nil
		}
		delete(data, key)
		return s.write(namespace, data)
	})
}

// Namespaces implements Store.Namespaces
func (s *FileStore) Namespaces(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ns := strings.TrimSuffix(name, ".json")
		if ValidateNamespace(ns) != nil {
			continue
		}
		out = append(out, ns)
	}
	return out, nil
}

// Ping implements Store.Ping
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store path %s is not a directory", s.dir)
	}
	return nil
}

// Close implements Store.Close
func (s *FileStore) Close() error { return nil }

func (s *FileStore) withLock(ctx context.Context, namespace string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	lock := flock.New(s.path(namespace) + ".lock")
	if err := acquire(ctx, lock); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

func acquire(ctx context.Context, lock *flock.Flock) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

// read loads the namespace file. Caller must hold the lock.
func (s *FileStore) read(namespace string) (map[string]string, error) {
	data := make(map[string]string)

	raw, err := os.ReadFile(s.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(raw) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	return data, nil
}

// readForWrite is read, except that a corrupt file is renamed out of the way
// and replaced by an empty namespace. Caller must hold the lock.
func (s *FileStore) readForWrite(namespace string) (map[string]string, error) {
	data, err := s.read(namespace)
	if !errors.Is(err, errCorruptFile) {
		return data, err
	}

	target := s.path(namespace)
	if renameErr := os.Rename(target, target+corruptSuffix); renameErr != nil {
		return nil, fmt.Errorf("failed to move corrupt store file aside: %w", renameErr)
	}
	s.log.Error("corrupt_store_file_moved",
		zap.String("namespace", namespace),
		zap.String("moved_to", filepath.Base(target+corruptSuffix)),
		zap.Error(err),
	)
	return make(map[string]string), nil
}

// write replaces the namespace file atomically. Caller must hold the lock.
func (s *FileStore) write(namespace string, data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store file: %w", err)
	}

	target := s.path(namespace)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename store file: %w", err)
	}
	return nil
}
