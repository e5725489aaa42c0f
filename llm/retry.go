package llm

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/session"
	"github.com/m4xw311/grocer/tools"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
	IsRetryable func(error) bool
	// Sleep waits out a backoff delay and returns early with ctx's error.
	Sleep       func(ctx context.Context, d time.Duration) error
}

type retryingClient struct {
	next   LLMClient
	cfg    RetryConfig
	logger *slog.Logger
	rand   *rand.Rand
}

// WithRetry wraps next so transient provider failures are retried with
// exponential backoff. Cancellation is never retried.
func WithRetry(next LLMClient, cfg RetryConfig, logger *slog.Logger) LLMClient {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = DefaultIsRetryable
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retryingClient{
		next:   next,
		cfg:    cfg,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *retryingClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	var lastErr error
	for i := 0; i < r.cfg.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := r.next.Chat(ctx, messages, availableTools)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !r.cfg.IsRetryable(err) || i == r.cfg.MaxAttempts-1 {
			break
		}
		delay := backoffDelay(r.cfg.BaseDelay, r.cfg.MaxDelay, r.cfg.Jitter, i, r.rand)
		r.logger.Info("llm call failed, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("delay", delay),
			slog.Any("error", err))
		if err := r.cfg.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, errors.Wrapf(lastErr, "llm call failed after retries")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func backoffDelay(base, max time.Duration, jitter float64, attempt int, r *rand.Rand) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > max {
		d = max
	}
	if jitter > 0 {
		d += time.Duration(float64(d) * jitter * r.Float64())
	}
	return d
}
