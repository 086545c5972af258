// Package jobs runs periodic batch work (reminders, purges) on a single
// goroutine so runs never overlap.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is a named unit of periodic work. Jobs must be idempotent: the runner
// may invoke them again for the same day after a restart.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes registered jobs on a fixed interval.
type Runner struct {
	interval time.Duration
	jobs     []Job
	logger   zerolog.Logger
}

func NewRunner(interval time.Duration, logger zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{interval: interval, logger: logger}
}

// Register adds a job to the schedule.
func (r *Runner) Register(name string, fn func(ctx context.Context) error) {
	r.jobs = append(r.jobs, Job{Name: name, Run: fn})
}

// Start blocks until ctx is cancelled, running every job once per interval.
// Job failures are logged and do not stop the runner.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunAll(ctx)
		}
	}
}

// Daily wraps a job so it runs at most once per calendar day, and not before
// the local clock reaches the given hour. The runner's interval controls how
// promptly after that hour the wrapped job actually fires.
func Daily(hour int, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return daily(hour, time.Now, fn)
}

func daily(hour int, now func() time.Time, fn func(ctx context.Context) error) func(ctx context.Context) error {
	var lastRun time.Time
	return func(ctx context.Context) error {
		t := now()
		if t.Hour() < hour {
			return nil
		}
		if lastRun.Year() == t.Year() && lastRun.YearDay() == t.YearDay() {
			return nil
		}
		if err := fn(ctx); err != nil {
			return err
		}
		lastRun = t
		return nil
	}
}

// RunAll executes every registered job once, sequentially.
func (r *Runner) RunAll(ctx context.Context) {
	for _, job := range r.jobs {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			r.logger.Error().Err(err).
				Str("job", job.Name).
				Dur("elapsed", time.Since(start)).
				Msg("job failed")
			continue
		}
		r.logger.Info().
			Str("job", job.Name).
			Dur("elapsed", time.Since(start)).
			Msg("job completed")
	}
}
