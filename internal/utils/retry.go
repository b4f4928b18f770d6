package utils

import (
	"context"
	"time"
)

type RetryOptions struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultRetry = RetryOptions{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// Retry calls fn until it succeeds, the attempts are used up or ctx is done.
// The delay doubles after every failure and is capped at MaxDelay. The last
// error from fn is returned.
func Retry(ctx context.Context, opts RetryOptions, fn func() error) error {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	delay := opts.BaseDelay

	var err error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == opts.Attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
	return err
}
