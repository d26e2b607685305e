package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDialDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{3, 16 * time.Second},
		{4, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := dialDelay(tt.attempt); got != tt.want {
			t.Errorf("dialDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDialWithRetry(t *testing.T) {
	t.Parallel()

	noWait := func(int) time.Duration { return time.Millisecond }
	refused := errors.New("connection refused")

	t.Run("succeeds after failures", func(t *testing.T) {
		t.Parallel()
		calls := 0
		want := &RabbitMQQueue{}
		got, err := dialWithRetry(context.Background(), 5, nil, func() (*RabbitMQQueue, error) {
			calls++
			if calls < 3 {
				return nil, refused
			}
			return want, nil
		}, noWait)
		if err != nil || got != want {
			t.Fatalf("Expected the third dial to win, got %v, %v", got, err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 dials, got %d", calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := dialWithRetry(context.Background(), 3, nil, func() (*RabbitMQQueue, error) {
			calls++
			return nil, refused
		}, noWait)
		if !errors.Is(err, refused) {
			t.Errorf("Expected the last dial error to be wrapped, got %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 dials, got %d", calls)
		}
	})

	t.Run("stops on cancel", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := dialWithRetry(ctx, 3, nil, func() (*RabbitMQQueue, error) {
			return nil, refused
		}, func(int) time.Duration { return time.Hour })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
