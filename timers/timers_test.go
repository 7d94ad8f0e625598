package timers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFailureKeepsSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewScheduler(clock)
	s.Logger = quiet

	calls := make(chan int, 10)
	n := 0
	e := &Entry{
		Id:        "tick",
		Every:     10 * time.Second,
		Immediate: true,
		F: func(ctx context.Context) error {
			n++
			calls <- n
			switch n {
			case 1:
				return errors.New("tick failed")
			case 2:
				panic("tick panicked")
			}
			return nil
		},
	}
	if err := s.Add(e); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx, "tick"); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx, "tick"); err != AlreadyRunning {
		t.Fatal(err)
	}

	if got := <-calls; got != 1 {
		t.Fatal(got)
	}
	for want := 2; want <= 3; want++ {
		clock.WaitForTimers(1)
		clock.Advance(10 * time.Second)
		if got := <-calls; got != want {
			t.Fatal(got)
		}
	}

	clock.WaitForTimers(1)
	if err := s.Stop("tick"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	runs, failures, err := s.Stats("tick")
	if err != nil {
		t.Fatal(err)
	}
	if runs != 3 || failures != 2 {
		t.Fatalf("runs %d failures %d", runs, failures)
	}
	if s.Running("tick") {
		t.Fatal("still running")
	}
}

func TestCron(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := Fake(time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC))
	s := NewScheduler(clock)
	s.Logger = quiet

	fired := make(chan time.Time, 1)
	if err := s.Add(&Entry{
		Id:   "minutely",
		Cron: "* * * * *",
		F: func(ctx context.Context) error {
			fired <- clock.Now()
			return nil
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx, "minutely"); err != nil {
		t.Fatal(err)
	}

	clock.WaitForTimers(1)
	clock.Advance(29 * time.Second)
	select {
	case <-fired:
		t.Fatal("too soon")
	default:
	}
	clock.Advance(time.Second)
	if at := <-fired; at.Second() != 0 || at.Minute() != 1 {
		t.Fatal(at)
	}
	cancel()
	s.Wait()
}

func TestAddErrors(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Add(&Entry{Id: "none"}); !errors.Is(err, NoSchedule) {
		t.Fatal(err)
	}
	if err := s.Add(&Entry{Id: "bad", Cron: "nope"}); err == nil {
		t.Fatal("bad cron accepted")
	}
	f := func(context.Context) error { return nil }
	if err := s.Add(&Entry{Id: "a", Every: time.Second, F: f}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(&Entry{Id: "a", Every: time.Second, F: f}); err != IdExists {
		t.Fatal(err)
	}
	if err := s.Start(context.Background(), "b"); err != NotFound {
		t.Fatal(err)
	}
}
