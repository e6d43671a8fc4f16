package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// planTiming marks the innermost open section as time-limited.
// A section accepts a single timing scope.
func (r *Runtime) planTiming(limit time.Duration) (string, error) {
	tree, task, err := r.CurrentTree()
	if err != nil {
		return "", err
	}

	root := tree.mutableSection(task.ID)
	if root == nil || !root.entered {
		return "", ErrNoSection
	}

	inner := root.innermost()
	if inner.plannedDuration != nil {
		return "", fmt.Errorf("%w: %q", ErrTimingScopeInUse, inner.name)
	}
	inner.plannedDuration = &limit
	inner.addHint(HintMayEndEarly)

	return inner.name, r.publishSection(tree, task, root)
}

// FailAfter runs fn with a deadline. If fn is still running when the limit passes, its context is
// cancelled and FailAfter returns an error wrapping ErrTimeout.
func (r *Runtime) FailAfter(ctx context.Context, limit time.Duration, fn func(ctx context.Context) error) error {
	if _, err := r.planTiming(limit); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, limit, ErrTimeout)
	defer cancel()

	err := fn(ctx)
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, limit, context.DeadlineExceeded)
	}
	return err
}

// WaitExactly runs fn for exactly limit: slow work is cancelled silently,
// fast work is followed by a wait until the limit has passed.
func (r *Runtime) WaitExactly(ctx context.Context, limit time.Duration, fn func(ctx context.Context) error) error {
	if _, err := r.planTiming(limit); err != nil {
		return err
	}

	limited, cancel := context.WithTimeoutCause(ctx, limit, ErrTimeout)
	defer cancel()

	err := fn(limited)
	if errors.Is(context.Cause(limited), ErrTimeout) {
		return nil
	}
	if err != nil {
		return err
	}

	<-limited.Done()
	if errors.Is(context.Cause(limited), ErrTimeout) {
		return nil
	}
	return ctx.Err()
}

// WarnAfter runs fn and logs a warning if it took longer than limit. It never interrupts fn.
func (r *Runtime) WarnAfter(limit time.Duration, fn func() error) error {
	name, err := r.planTiming(limit)
	if err != nil {
		return err
	}

	begin := r.now()
	defer func() {
		if elapsed := r.now().Sub(begin); elapsed >= limit {
			r.logger.Warn("exceeded the time limit",
				slog.String("section", name),
				slog.Duration("limit", limit),
				slog.Duration("exceeded_by", elapsed-limit),
			)
		}
	}()

	return fn()
}

// SleepFor sleeps for d or until ctx is done.
func (r *Runtime) SleepFor(ctx context.Context, d time.Duration) error {
	if _, err := r.planTiming(d); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
