// Package timers runs periodic work.
//
// Each Entry runs in its own goroutine.  The loop is simple: compute
// the next time, wait for it (or for cancellation), do the work, and
// repeat.  The work is performed in the entry's goroutine, so a slow
// iteration delays that entry's next iteration (and no other entry).
// An iteration that returns an error or panics is logged, and the
// entry keeps going.
package timers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
)

var (
	NotFound       = errors.New("not found")
	IdExists       = errors.New("id exists")
	AlreadyRunning = errors.New("already running")
	NoSchedule     = errors.New("neither an interval nor a cron expression")
)

// Entry represents some periodic work.
type Entry struct {
	// Id is unique across all entries of a given Scheduler.
	Id string `json:"id"`

	// Every is the period.  Ignored if Cron isn't empty.
	Every time.Duration `json:"every,omitempty"`

	// Cron is a cron expression.
	Cron string `json:"cron,omitempty"`

	// Immediate means the first iteration runs when the entry
	// starts.  Otherwise the first iteration waits for the first
	// scheduled time.
	Immediate bool `json:"immediate,omitempty"`

	// F is the work.
	F func(context.Context) error `json:"-"`

	// Runs and Failures count iterations.
	Runs     int `json:"runs"`
	Failures int `json:"failures"`

	cron   *cronexpr.Expression
	cancel context.CancelFunc
}

// Scheduler is a managed set of Entries.
type Scheduler struct {
	Clock  Clock
	Logger *slog.Logger

	sync.Mutex
	entries map[string]*Entry
	wg      sync.WaitGroup
}

// NewScheduler makes a Scheduler.  A nil Clock means Real().
func NewScheduler(c Clock) *Scheduler {
	if c == nil {
		c = Real()
	}
	return &Scheduler{
		Clock:   c,
		entries: make(map[string]*Entry, 8),
	}
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Add registers an Entry without starting it.
func (s *Scheduler) Add(e *Entry) error {
	if e.Cron != "" {
		c, err := cronexpr.Parse(e.Cron)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.Id, err)
		}
		e.cron = c
	} else if e.Every <= 0 {
		return fmt.Errorf("entry %s: %w", e.Id, NoSchedule)
	}

	s.Lock()
	defer s.Unlock()
	if _, have := s.entries[e.Id]; have {
		return IdExists
	}
	s.entries[e.Id] = e
	return nil
}

// Start starts the Entry with the given id.
func (s *Scheduler) Start(ctx context.Context, id string) error {
	s.Lock()
	defer s.Unlock()

	e, have := s.entries[id]
	if !have {
		return NotFound
	}
	if e.cancel != nil {
		return AlreadyRunning
	}

	ctx, e.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, e)
	}()
	return nil
}

// Stop stops the Entry with the given id.
func (s *Scheduler) Stop(id string) error {
	s.Lock()
	defer s.Unlock()

	e, have := s.entries[id]
	if !have {
		return NotFound
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	return nil
}

// Running reports whether the Entry is started.
func (s *Scheduler) Running(id string) bool {
	s.Lock()
	defer s.Unlock()
	e, have := s.entries[id]
	return have && e.cancel != nil
}

// Ids returns the ids of all entries.
func (s *Scheduler) Ids() []string {
	s.Lock()
	defer s.Unlock()
	acc := make([]string, 0, len(s.entries))
	for id := range s.entries {
		acc = append(acc, id)
	}
	return acc
}

// Stats returns the run and failure counts of the Entry.
func (s *Scheduler) Stats(id string) (runs, failures int, err error) {
	s.Lock()
	defer s.Unlock()
	e, have := s.entries[id]
	if !have {
		return 0, 0, NotFound
	}
	return e.Runs, e.Failures, nil
}

// Wait waits for all started entries to stop.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// next returns how long to wait before the next iteration.
func (s *Scheduler) next(e *Entry) time.Duration {
	if e.cron != nil {
		now := s.Clock.Now()
		at := e.cron.Next(now)
		if at.IsZero() {
			return -1
		}
		return at.Sub(now)
	}
	return e.Every
}

func (s *Scheduler) run(ctx context.Context, e *Entry) {
	s.logger().Debug("timer start", "id", e.Id)
	first := e.Immediate
	for {
		if !first {
			d := s.next(e)
			if d < 0 {
				s.logger().Warn("timer has no next time", "id", e.Id, "cron", e.Cron)
				return
			}
			select {
			case <-ctx.Done():
				s.logger().Debug("timer stop", "id", e.Id)
				return
			case <-s.Clock.After(d):
			}
		}
		first = false

		if err := ctx.Err(); err != nil {
			return
		}
		err := s.fire(ctx, e)

		s.Lock()
		e.Runs++
		if err != nil {
			e.Failures++
		}
		s.Unlock()

		if err != nil {
			s.logger().Error("timer iteration failed", "id", e.Id, "error", err)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, e *Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.F(ctx)
}
