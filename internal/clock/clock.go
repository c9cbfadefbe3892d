package clock

import "time"

// Clock supplies the application's notion of "now" and the current civil
// day. Rollover and the performance ledger depend on day boundaries in the
// configured time zone, so the clock is injected instead of calling
// time.Now directly.
type Clock interface {
	Now() time.Time
	// Today returns the current civil day as midnight UTC. Date-valued
	// columns store this normalized form so range comparisons behave the
	// same on every backend.
	Today() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) Clock {
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *systemClock) Today() time.Time {
	return Day(c.Now())
}

func (c *systemClock) Location() *time.Location {
	return c.loc
}

// Day normalizes a timestamp to midnight UTC of its civil day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Fixed is a clock pinned to a single instant, for tests and for
// simulating day boundaries.
type Fixed struct {
	Time time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{Time: t}
}

func (c *Fixed) Now() time.Time           { return c.Time }
func (c *Fixed) Today() time.Time         { return Day(c.Time) }
func (c *Fixed) Location() *time.Location { return c.Time.Location() }
func (c *Fixed) Advance(d time.Duration)  { c.Time = c.Time.Add(d) }
func (c *Fixed) AdvanceDays(n int)        { c.Time = c.Time.AddDate(0, 0, n) }
