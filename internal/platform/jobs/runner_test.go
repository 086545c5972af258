package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunAllExecutesInOrder(t *testing.T) {
	r := NewRunner(time.Hour, zerolog.Nop())
	var order []string
	r.Register("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	r.Register("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	r.RunAll(context.Background())

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("unexpected execution order: %v", order)
	}
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	r := NewRunner(time.Hour, zerolog.Nop())
	ran := false
	r.Register("failing", func(ctx context.Context) error {
		return errors.New("boom")
	})
	r.Register("after", func(ctx context.Context) error {
		ran = true
		return nil
	})

	r.RunAll(context.Background())

	if !ran {
		t.Error("expected jobs after a failure to still run")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	r := NewRunner(time.Millisecond, zerolog.Nop())
	count := 0
	r.Register("tick", func(ctx context.Context) error {
		count++
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r.Start(ctx)

	if count == 0 {
		t.Error("expected at least one tick before cancellation")
	}
}

func TestDailyWaitsForHour(t *testing.T) {
	clock := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	runs := 0
	job := daily(8, func() time.Time { return clock }, func(ctx context.Context) error {
		runs++
		return nil
	})

	if err := job(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runs != 0 {
		t.Fatal("job must not run before the scheduled hour")
	}

	clock = clock.Add(3 * time.Hour)
	if err := job(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runs != 1 {
		t.Fatalf("expected one run after the hour, got %d", runs)
	}
}

func TestDailyRunsOncePerDay(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	runs := 0
	job := daily(8, func() time.Time { return clock }, func(ctx context.Context) error {
		runs++
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := job(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		clock = clock.Add(time.Hour)
	}
	if runs != 1 {
		t.Fatalf("expected a single run per day, got %d", runs)
	}

	clock = clock.AddDate(0, 0, 1)
	if err := job(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runs != 2 {
		t.Fatalf("expected a second run the next day, got %d", runs)
	}
}

func TestDailyRetriesAfterFailure(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	fail := true
	runs := 0
	job := daily(8, func() time.Time { return clock }, func(ctx context.Context) error {
		runs++
		if fail {
			return errors.New("boom")
		}
		return nil
	})

	if err := job(context.Background()); err == nil {
		t.Fatal("expected the failure to surface")
	}
	fail = false
	if err := job(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runs != 2 {
		t.Fatalf("expected a same-day retry after failure, got %d runs", runs)
	}
}
