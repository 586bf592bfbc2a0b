// Package services provides the business logic shared by the API server
// and the background workers.
//
// This file implements the recurrence calculator. Each interval has its
// own advancer so the set can be extended without touching the callers.
package services

import (
	"time"

	"welth/internal/core"
)

// DateAdvancer computes the next occurrence date for one recurring
// interval. Implementations are pure: no I/O, no clock reads.
type DateAdvancer interface {
	// Next returns the occurrence that follows start.
	Next(start time.Time) time.Time
}

type dailyAdvancer struct{}

func (dailyAdvancer) Next(start time.Time) time.Time { return start.AddDate(0, 0, 1) }

type weeklyAdvancer struct{}

func (weeklyAdvancer) Next(start time.Time) time.Time { return start.AddDate(0, 0, 7) }

// monthlyAdvancer adds one calendar month. Day-of-month overflow (for
// example Jan 31 -> Mar 2/3) is accepted as a consequence of calendar
// arithmetic and not corrected.
type monthlyAdvancer struct{}

func (monthlyAdvancer) Next(start time.Time) time.Time { return start.AddDate(0, 1, 0) }

type yearlyAdvancer struct{}

func (yearlyAdvancer) Next(start time.Time) time.Time { return start.AddDate(1, 0, 0) }

var dateAdvancers = map[core.RecurringInterval]DateAdvancer{
	core.Daily:   dailyAdvancer{},
	core.Weekly:  weeklyAdvancer{},
	core.Monthly: monthlyAdvancer{},
	core.Yearly:  yearlyAdvancer{},
}

// NextRecurringDate returns the occurrence date that follows start for
// the given interval. It fails with core.ErrInvalidInterval for any
// value outside the four supported intervals.
func NextRecurringDate(start time.Time, interval core.RecurringInterval) (time.Time, error) {
	adv, ok := dateAdvancers[interval]
	if !ok {
		return time.Time{}, core.ErrInvalidInterval
	}
	return adv.Next(start), nil
}
