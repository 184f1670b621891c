// Package pipeline runs units of work one after another, appending what each
// produces to a shared record set. A failing unit never ends the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/domain"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/monitoring"
)

// ErrSkip marks an expected miss: a page that could not be fetched or has no
// data. Skipped units are logged at warning level.
var ErrSkip = errors.New("unit skipped")

// Skip returns an error wrapping ErrSkip.
func Skip(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkip, fmt.Sprintf(format, args...))
}

// Unit is one independent step, typically one page.
type Unit[T any] struct {
	Name string
	Do   func(ctx context.Context) ([]T, error)
}

// Runner holds the collaborators shared by every unit of a run.
type Runner struct {
	Dataset  string
	Delay    time.Duration
	Sleeper  fetcher.Sleeper
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
	Progress *Progress
}

// Stats summarises a run.
type Stats struct {
	Units       int
	Succeeded   int
	Skipped     int
	Failed      int
	Records     int
	Interrupted bool
}

const (
	outcomeSucceeded = "succeeded"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

// Run processes units in order and appends their items to set. Records
// gathered before a cancellation stay in set.
func Run[T any](ctx context.Context, r Runner, units []Unit[T], set *domain.RecordSet[T]) Stats {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleeper := r.Sleeper
	if sleeper == nil {
		sleeper = fetcher.RealSleeper{}
	}
	r.Progress.start(r.Dataset, len(units))

	var stats Stats
	for _, u := range units {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}
		r.Progress.enter(u.Name)

		items, err := safeDo(ctx, u)
		if err != nil && !errors.Is(err, ErrSkip) {
			items = nil
		}
		set.Append(items...)
		stats.Units++
		stats.Records += len(items)
		r.Metrics.AddRecords(r.Dataset, len(items))

		outcome := outcomeSucceeded
		switch {
		case err == nil:
			stats.Succeeded++
			logger.Info("unit done",
				zap.String("dataset", r.Dataset),
				zap.String("unit", u.Name),
				zap.Int("records", len(items)))
		case errors.Is(err, ErrSkip):
			outcome = outcomeSkipped
			stats.Skipped++
			logger.Warn("unit skipped",
				zap.String("dataset", r.Dataset),
				zap.String("unit", u.Name),
				zap.Error(err))
		default:
			outcome = outcomeFailed
			stats.Failed++
			logger.Error("unit failed",
				zap.String("dataset", r.Dataset),
				zap.String("unit", u.Name),
				zap.Error(err))
		}
		r.Metrics.IncUnit(r.Dataset, outcome)
		r.Progress.leave(outcome, len(items))

		if r.Delay > 0 {
			if err := sleeper.Sleep(ctx, r.Delay); err != nil {
				stats.Interrupted = true
				break
			}
		}
	}

	if stats.Interrupted {
		logger.Warn("run interrupted",
			zap.String("dataset", r.Dataset),
			zap.Int("units_done", stats.Units),
			zap.Int("units_total", len(units)))
	}
	r.Progress.finish(stats.Interrupted)
	return stats
}

func safeDo[T any](ctx context.Context, u Unit[T]) (items []T, err error) {
	defer func() {
		if p := recover(); p != nil {
			items = nil
			err = fmt.Errorf("panic in unit %s: %v", u.Name, p)
		}
	}()
	return u.Do(ctx)
}
