package compliance

import (
	"math"
	"time"

	"github.com/zoobzio/clockz"
)

// Engine evaluates compliance records against the current date of its clock.
// It holds no other state, so one Engine can be shared.
type Engine struct {
	clock clockz.Clock
}

// NewEngine creates an Engine reading "now" from clock. A nil clock uses the
// system clock.
func NewEngine(clock clockz.Clock) *Engine {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Engine{clock: clock}
}

// Now returns the current time of the engine's clock.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// DaysUntilExpiry returns the whole days from today until expiry, counted in
// the location of the engine's clock.
func (e *Engine) DaysUntilExpiry(expiry time.Time) int {
	return DaysBetween(expiry, e.clock.Now())
}

// DaysBetween returns the number of calendar days from today to expiry.
//
// expiry is first moved into today's location, so the same instant gives the
// same answer whatever location it was decoded in. Both values are then
// reduced to their calendar date, so the time of day never matters: a
// document expiring at 00:01 or 23:59 today is 0 days away, anything
// tomorrow is 1. Negative values mean the date has passed.
func DaysBetween(expiry, today time.Time) int {
	diff := calendarDate(expiry.In(today.Location())).Sub(calendarDate(today))
	return int(math.Ceil(diff.Hours() / 24))
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClassifyStatus maps days until expiry to a band: 7 days or less (including
// expired) is red, 30 days or less is amber, anything later is green.
func ClassifyStatus(days int) Band {
	switch {
	case days <= 7:
		return BandRed
	case days <= 30:
		return BandAmber
	default:
		return BandGreen
	}
}

// ClassifyPriority maps days until expiry to a renewal priority.
func ClassifyPriority(days int) Priority {
	switch {
	case days <= 3:
		return PriorityCritical
	case days <= 14:
		return PriorityHigh
	case days <= 30:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
