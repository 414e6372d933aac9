package gdrive

import (
	"context"
	"time"
)

// Retry wraps a provider call with a per-attempt timeout and bounded
// exponential backoff. Only transient failures are retried.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration

	sleep func(context.Context, time.Duration) error
}

func DefaultRetry() Retry {
	return Retry{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Do invokes op until it succeeds, fails permanently or the attempts are
// exhausted. It returns the number of attempts made and the classified error
// from the last attempt.
func (r Retry) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if e := r.wait(ctx, r.backoff(attempt-1)); e != nil {
				return attempt - 1, Classify(e)
			}
		}

		if err = Classify(r.call(ctx, op)); err == nil {
			return attempt, nil
		} else if !IsTransient(err) {
			return attempt, err
		}

		if attempt < attempts {
			debugf("transient failure on attempt %v of %v (%v)", attempt, attempts, err)
		}
	}

	return attempts, err
}

func (r Retry) call(ctx context.Context, op func(context.Context) error) error {
	if r.Timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	return op(ctx)
}

// backoff returns BaseDelay * 2^(n-1), capped at MaxDelay.
func (r Retry) backoff(n int) time.Duration {
	if n < 1 || r.BaseDelay <= 0 {
		return 0
	}

	delay := r.BaseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}

	if r.MaxDelay > 0 && delay > r.MaxDelay {
		return r.MaxDelay
	}

	return delay
}

func (r Retry) wait(ctx context.Context, delay time.Duration) error {
	if r.sleep != nil {
		return r.sleep(ctx, delay)
	}

	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
