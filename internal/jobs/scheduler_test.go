package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNextRun_Midnight(t *testing.T) {
	loc := time.FixedZone("GMT+5", 5*60*60)
	start := time.Date(2024, 6, 14, 15, 42, 0, 0, loc)

	first, err := NextRun("@midnight", start, loc)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if want := time.Date(2024, 6, 15, 0, 0, 0, 0, loc); !first.Equal(want) {
		t.Errorf("first run = %v, want %v", first, want)
	}

	second, err := NextRun("@midnight", first, loc)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if got := second.Sub(first); got != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", got)
	}
}

func TestNextRun_JustBeforeMidnight(t *testing.T) {
	loc := time.UTC
	start := time.Date(2024, 12, 31, 23, 59, 59, 0, loc)

	next, err := NextRun("@midnight", start, loc)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, loc); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextRun_InvalidSpec(t *testing.T) {
	if _, err := NextRun("every night", time.Now(), time.UTC); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRegister(t *testing.T) {
	s := NewScheduler(time.UTC, testLogger())

	if err := s.Register("sweep", "@midnight", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("broken", "61 * * * *", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected invalid spec to be rejected")
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestWrapPassesSchedulerContext(t *testing.T) {
	s := NewScheduler(time.UTC, testLogger())

	var got context.Context
	run := s.wrap("probe", func(ctx context.Context) error {
		got = ctx
		return errors.New("boom")
	})
	run()

	if got == nil {
		t.Fatal("job was not invoked")
	}
	if got.Err() != nil {
		t.Fatal("job context cancelled before Stop")
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !errors.Is(got.Err(), context.Canceled) {
		t.Errorf("job context err = %v after Stop, want canceled", got.Err())
	}
}
