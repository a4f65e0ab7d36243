package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/javanhut/strata/internal/logging"
)

// RetryOnConflict runs fn until it succeeds, fails with an error other than
// ErrConcurrentModification, ctx ends, or maxElapsed passes. fn should re-read the
// branch head on every attempt.
func RetryOnConflict(ctx context.Context, maxElapsed time.Duration, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConcurrentModification) {
			logging.FromContext(ctx).WithField("attempt", attempt).WithError(err).Debug("Retrying after concurrent modification")
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// Retry runs fn under RetryOnConflict with the repository's configured bound.
func (r *Repository) Retry(ctx context.Context, fn func() error) error {
	return RetryOnConflict(ctx, r.retryMax, fn)
}
