package clock

import (
	"sync"
	"time"
)

// Source is a time source. Backends stamp mtime and change values with it.
type Source interface {
	Now() time.Time
	MustIncrement(prev time.Time) time.Time
}

// Clock is a coarse clock that is updated once per second.
type Clock struct {
	init   sync.Once
	lock   sync.Mutex
	ticker *time.Ticker
	now    time.Time
}

// Now returns the current time of the clock.
func (c *Clock) Now() time.Time {
	c.init.Do(c.start)
	c.lock.Lock()

	defer c.lock.Unlock()

	return c.now
}

// MustIncrement returns the current time, but makes sure
// that it is later than prev.
func (c *Clock) MustIncrement(prev time.Time) time.Time {
	return mustIncrement(c.Now(), prev)
}

func (c *Clock) start() {
	c.now = time.Now()
	c.ticker = time.NewTicker(time.Second)

	go func() {
		for t := range c.ticker.C {
			c.set(t)
		}
	}()
}

func (c *Clock) set(t time.Time) {
	c.lock.Lock()

	defer c.lock.Unlock()

	c.now = t
}

// Manual is a Source that only moves when told to.
type Manual struct {
	lock sync.Mutex
	now  time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.lock.Lock()

	defer m.lock.Unlock()

	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.lock.Lock()

	defer m.lock.Unlock()

	m.now = m.now.Add(d)
}

func (m *Manual) MustIncrement(prev time.Time) time.Time {
	return mustIncrement(m.Now(), prev)
}

// The coarse clock can lag behind a previously stored timestamp,
// in which case prev is bumped by a nanosecond.
func mustIncrement(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}

	return prev.Add(time.Nanosecond)
}
