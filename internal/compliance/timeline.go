package compliance

import (
	"time"
)

// Timeline buckets renewals into TimelineMonths consecutive calendar months
// starting with the current month. Renewals are collected with a horizon
// reaching the last day of the final month, so every bucket can fill.
func (e *Engine) Timeline(documents []Document, drivers []Driver) []TimelineMonth {
	now := e.clock.Now()
	first := monthStart(now)
	last := first.AddDate(0, TimelineMonths, -1)
	return e.TimelineWithHorizon(documents, drivers, DaysBetween(last, now))
}

// TimelineWithHorizon buckets the renewals found within horizonDays. With
// RenewalHorizonDays only the first three or four months can hold renewals.
func (e *Engine) TimelineWithHorizon(documents []Document, drivers []Driver, horizonDays int) []TimelineMonth {
	renewals := e.renewalsWithin(documents, drivers, horizonDays)
	first := monthStart(e.clock.Now())

	timeline := make([]TimelineMonth, TimelineMonths)
	index := make(map[[2]int]int, TimelineMonths)
	for i := range timeline {
		start := first.AddDate(0, i, 0)
		timeline[i] = TimelineMonth{
			Month:    start.Format("January 2006"),
			Start:    start,
			Renewals: []RenewalAlert{},
		}
		index[[2]int{start.Year(), int(start.Month())}] = i
	}

	for _, r := range renewals {
		y, m, _ := r.ExpiryDate.Date()
		if i, ok := index[[2]int{y, int(m)}]; ok {
			timeline[i].Renewals = append(timeline[i].Renewals, r)
		}
	}

	return timeline
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
