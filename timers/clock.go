package timers

import (
	"sort"
	"sync"
	"time"
)

// Clock is what a Scheduler uses to tell time.
type Clock interface {
	Now() time.Time

	// After returns a channel that receives the time once d has
	// elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// FakeClock is a Clock that only moves when told to.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	sync.Mutex
	now     time.Time
	waiters []*waiter
	changed *sync.Cond
}

type waiter struct {
	at time.Time
	c  chan time.Time
}

// Fake makes a FakeClock that starts at the given time.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{
		now: start,
	}
	c.changed = sync.NewCond(&c.Mutex)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.Lock()
	defer c.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, &waiter{
		at: c.now.Add(d),
		c:  ch,
	})
	c.changed.Broadcast()
	return ch
}

// Advance moves the clock forward and fires (in order) every pending
// After whose time has come.
func (c *FakeClock) Advance(d time.Duration) {
	c.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var (
		fire    []*waiter
		pending []*waiter
	)
	for _, w := range c.waiters {
		if w.at.After(now) {
			pending = append(pending, w)
		} else {
			fire = append(fire, w)
		}
	}
	c.waiters = pending
	c.changed.Broadcast()
	c.Unlock()

	sort.Slice(fire, func(i, j int) bool {
		return fire[i].at.Before(fire[j].at)
	})
	for _, w := range fire {
		w.c <- now
	}
}

// WaitForTimers blocks until at least n Afters are pending.
//
// A test calls WaitForTimers before Advance so that it doesn't race
// the goroutine that is about to wait.
func (c *FakeClock) WaitForTimers(n int) {
	c.Lock()
	defer c.Unlock()
	for len(c.waiters) < n {
		c.changed.Wait()
	}
}

// Pending returns the number of pending Afters.
func (c *FakeClock) Pending() int {
	c.Lock()
	defer c.Unlock()
	return len(c.waiters)
}
