package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock.
func System() Clock { return systemClock{} }

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a clock frozen at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Calendar maps instants to business days in the operation's time zone.
type Calendar struct {
	clock    Clock
	location *time.Location
}

// NewCalendar creates a calendar. A nil location means UTC.
func NewCalendar(c Clock, location *time.Location) *Calendar {
	if c == nil {
		c = System()
	}
	if location == nil {
		location = time.UTC
	}
	return &Calendar{clock: c, location: location}
}

// Now returns the current instant.
func (c *Calendar) Now() time.Time {
	return c.clock.Now()
}

// Today returns the current business day as a UTC midnight date.
func (c *Calendar) Today() time.Time {
	return c.BusinessDate(c.clock.Now())
}

// BusinessDate returns the business day t falls on, as a UTC midnight date.
func (c *Calendar) BusinessDate(t time.Time) time.Time {
	y, m, d := t.In(c.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
