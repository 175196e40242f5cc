package runner

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	cerror "github.com/sourceplane/varcall/internal/errors"
	"github.com/sourceplane/varcall/internal/model"
	"github.com/sourceplane/varcall/internal/scheduler"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultMaxFailures  = 20
)

// Waiter blocks until a job reaches a terminal state
type Waiter struct {
	Scheduler scheduler.Scheduler
	Interval  time.Duration
	// MaxFailures is the number of consecutive scheduler failures tolerated
	MaxFailures int
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewWaiter returns a waiter with the default interval and failure bound.
func NewWaiter(s scheduler.Scheduler, logger *zap.Logger) *Waiter {
	return &Waiter{
		Scheduler:   s,
		Interval:    DefaultPollInterval,
		MaxFailures: DefaultMaxFailures,
		Clock:       clock.New(),
		Logger:      logger,
	}
}

// Wait polls handle until it completes. A transient status failure or an
// UNKNOWN state counts as one failure; PENDING and RUNNING reset the count.
// FAILED and any non-transient query error end the wait with an error.
func (w *Waiter) Wait(ctx context.Context, handle model.JobHandle) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.Stringer("job", handle))

	failures := 0
	for {
		state, err := w.Scheduler.Poll(ctx, handle)
		switch {
		case err != nil && !cerror.IsTransientPoll(err):
			return err
		case err != nil || state == model.StateUnknown:
			failures++
			logger.Warn("scheduler status unavailable",
				zap.Int("failures", failures),
				zap.Int("max", w.MaxFailures),
				zap.Error(err))
			if failures >= w.MaxFailures {
				return cerror.ErrPollExhausted.GenWithStackByArgs(handle, failures)
			}
		case state == model.StateCompleted:
			logger.Info("job completed")
			return nil
		case state.InFlight():
			if failures > 0 {
				logger.Info("scheduler reachable again", zap.Stringer("state", state))
			}
			failures = 0
			logger.Debug("waiting for job", zap.Stringer("state", state))
		default:
			return cerror.ErrStageFailed.GenWithStackByArgs(handle, state)
		}

		timer := w.Clock.Timer(w.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
