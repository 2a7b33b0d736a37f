// Package resilience holds the retry policy applied around external calls.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"text2model/internal/infrastructure/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMultiplier  = 2.0
)

// SleepFunc suspends the calling goroutine for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy retries a fallible operation with exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	// Sleep defaults to a context-aware timer wait.
	Sleep  SleepFunc
	Logger *slog.Logger
}

func DefaultPolicy(logger *slog.Logger) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		Logger:      logger,
	}
}

// Delay returns the wait after the failed attempt with the given zero-based index.
func (p Policy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt)))
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// Do runs op until it succeeds or the attempts are exhausted, in which case the
// last failure is returned unchanged. name labels log lines and metrics.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	total := p.attempts()
	log := p.logger()

	for attempt := 0; attempt < total; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == total-1 {
			log.Error(fmt.Sprintf("Final attempt %d/%d for %s failed: %s", total, total, name, err),
				"op", name, "attempt", attempt+1, "err", err)
			break
		}

		wait := p.Delay(attempt)
		metrics.IncRetry(name)
		log.Warn(fmt.Sprintf("Attempt %d/%d for %s failed: %s. Retrying in %.1fs...", attempt+1, total, name, err, wait.Seconds()),
			"op", name, "attempt", attempt+1, "wait", wait, "err", err)

		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			log.Warn("retry aborted", "op", name, "err", sleepErr)
			return zero, fmt.Errorf("%w (retry aborted: %w)", lastErr, sleepErr)
		}
	}

	return zero, lastErr
}

// SleepContext waits for d without blocking other goroutines.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
