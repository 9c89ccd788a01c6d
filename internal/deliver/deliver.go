// Package deliver sends fragment sequences to downstream channels that cap
// message length.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

// Sink accepts one fragment at a time.
type Sink interface {
	Name() string
	Send(ctx context.Context, f doctree.Fragment) error
}

// RetryableError marks a transient failure (rate limit, 5xx, network).
type RetryableError struct {
	Err        error
	RetryAfter time.Duration // server-requested delay, zero if none
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// wait is replaced in tests.
var wait = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deliver sends seq to sink in order and stops at the first fragment that
// cannot be delivered. It returns the number of fragments sent.
func Deliver(ctx context.Context, sink Sink, seq doctree.Sequence, log *slog.Logger) (int, error) {
	log = log.With("sink", sink.Name())
	for i, f := range seq {
		if f.Overflow {
			log.Warn("sending oversized fragment", "fragment", f.Index, "length", f.Length)
		}
		if err := sendWithRetry(ctx, sink, f, log); err != nil {
			return i, fmt.Errorf("deliver fragment #%d: %w", f.Index, err)
		}
	}
	log.Info("delivered", "fragments", len(seq))
	return len(seq), nil
}

func sendWithRetry(ctx context.Context, sink Sink, f doctree.Fragment, log *slog.Logger) error {
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			d := Backoff(attempt - 1)
			var retryErr *RetryableError
			if errors.As(err, &retryErr) && retryErr.RetryAfter > d {
				d = retryErr.RetryAfter
			}
			log.Warn("retrying send", "fragment", f.Index, "attempt", attempt, "delay", d, "error", err)
			if werr := wait(ctx, d); werr != nil {
				return werr
			}
		}
		err = sink.Send(ctx, f)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
