package gdrive

import (
	"context"
	"time"
)

// WithSleep replaces the backoff delay for tests.
func (r Retry) WithSleep(sleep func(context.Context, time.Duration) error) Retry {
	r.sleep = sleep

	return r
}
