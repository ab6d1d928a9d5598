package llm

import (
	"context"
	"errors"
	"time"

	"chatguide/pkg/logx"
)

// RetryClient wraps a Client with bounded retries on transport failures.
// Malformed replies are retried too: a re-roll usually produces valid JSON.
type RetryClient struct {
	inner    Client
	attempts int
	backoff  time.Duration
	logger   *logx.Logger
}

// WithRetry wraps c so each Generate is tried up to attempts times with
// linear backoff between tries.
func WithRetry(c Client, attempts int, backoff time.Duration) *RetryClient {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryClient{
		inner:    c,
		attempts: attempts,
		backoff:  backoff,
		logger:   logx.NewLogger("llm"),
	}
}

// Generate implements Client.
func (r *RetryClient) Generate(ctx context.Context, prompt string) (Reply, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		reply, err := r.inner.Generate(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		r.logger.Warn("generate attempt %d/%d failed: %v", attempt, r.attempts, err)
		if attempt < r.attempts {
			select {
			case <-ctx.Done():
				return Reply{}, ctx.Err()
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}
	}
	return Reply{}, lastErr
}

// ModelName implements Client.
func (r *RetryClient) ModelName() string { return r.inner.ModelName() }
