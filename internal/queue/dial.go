package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultDialAttempts covers a broker that starts alongside the service
	DefaultDialAttempts = 10
	initialDialDelay    = 2 * time.Second
	maxDialDelay        = 30 * time.Second
)

// dialDelay doubles from initialDialDelay and caps at maxDialDelay
func dialDelay(attempt int) time.Duration {
	if attempt >= 5 {
		return maxDialDelay
	}
	delay := initialDialDelay * time.Duration(1<<uint(attempt))
	if delay > maxDialDelay {
		delay = maxDialDelay
	}
	return delay
}

// DialWithRetry connects to RabbitMQ, retrying with exponential backoff
// until attempts are used up or ctx is done
func DialWithRetry(ctx context.Context, amqpURL string, attempts int, log *zap.Logger) (*RabbitMQQueue, error) {
	return dialWithRetry(ctx, attempts, log, func() (*RabbitMQQueue, error) {
		return NewRabbitMQQueue(amqpURL)
	}, dialDelay)
}

func dialWithRetry(ctx context.Context, attempts int, log *zap.Logger, dial func() (*RabbitMQQueue, error), delay func(int) time.Duration) (*RabbitMQQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if attempts <= 0 {
		attempts = DefaultDialAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		q, err := dial()
		if err == nil {
			return q, nil
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}

		wait := delay(attempt)
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", attempts),
			zap.Duration("retry_delay", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}
