package services

import (
	"errors"
	"testing"
	"time"

	"welth/internal/core"
)

func TestNextRecurringDate(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval core.RecurringInterval
		want     time.Time
	}{
		{"daily", core.Daily, time.Date(2024, 1, 16, 10, 30, 0, 0, time.UTC)},
		{"weekly", core.Weekly, time.Date(2024, 1, 22, 10, 30, 0, 0, time.UTC)},
		{"monthly", core.Monthly, time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)},
		{"yearly", core.Yearly, time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRecurringDate(start, tt.interval)
			if err != nil {
				t.Fatalf("NextRecurringDate() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextRecurringDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextRecurringDateAdvancesForward(t *testing.T) {
	starts := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), // month-end
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), // leap day
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, start := range starts {
		for _, interval := range []core.RecurringInterval{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
			got, err := NextRecurringDate(start, interval)
			if err != nil {
				t.Fatalf("NextRecurringDate(%v, %s) error = %v", start, interval, err)
			}
			if !got.After(start) {
				t.Errorf("NextRecurringDate(%v, %s) = %v, not after start", start, interval, got)
			}
		}
	}
}

func TestNextRecurringDateMonthOverflow(t *testing.T) {
	// Jan 31 + 1 month lands in March; calendar overflow is accepted,
	// not corrected.
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	got, err := NextRecurringDate(start, core.Monthly)
	if err != nil {
		t.Fatalf("NextRecurringDate() error = %v", err)
	}
	want := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextRecurringDate() = %v, want %v", got, want)
	}
}

func TestNextRecurringDateInvalidInterval(t *testing.T) {
	for _, interval := range []core.RecurringInterval{"", "BIWEEKLY", "daily", "HOURLY"} {
		_, err := NextRecurringDate(time.Now(), interval)
		if !errors.Is(err, core.ErrInvalidInterval) {
			t.Errorf("NextRecurringDate(%q) error = %v, want ErrInvalidInterval", interval, err)
		}
	}
}
