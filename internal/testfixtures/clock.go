package testfixtures

import (
	"sync"
	"time"
)

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock initialised to the supplied time. When start is the
// zero value, the shared ReferenceTime is used.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetDate moves the clock to the given DD/MM/YYYY day keeping the time of day.
func (c *Clock) SetDate(day string) {
	parsed, err := time.Parse("02/01/2006", day)
	if err != nil {
		panic("testfixtures: invalid date " + day)
	}
	c.mu.Lock()
	h, m, s := c.current.Clock()
	c.current = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), h, m, s, 0, time.UTC)
	c.mu.Unlock()
}

// AdvanceDays moves the clock forward by whole days and returns the new time.
func (c *Clock) AdvanceDays(days int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.AddDate(0, 0, days)
	return c.current
}

// Today returns the clock's current day formatted as DD/MM/YYYY.
func (c *Clock) Today() string {
	return c.Now().Format("02/01/2006")
}

// DaysFromNow formats the day offset from the clock's current day.
func (c *Clock) DaysFromNow(days int) string {
	return c.Now().AddDate(0, 0, days).Format("02/01/2006")
}
