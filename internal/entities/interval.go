package entities

import (
	"time"

	"parkspot/internal/apperrors"
)

// TimeInterval is a half-open time range [Start, End). Adjacent intervals
// (a.End == b.Start) do not overlap, so back-to-back bookings can tile a day.
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// NewTimeInterval validates start < end before producing an interval.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, apperrors.ErrInvalidInterval
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether inner lies entirely within iv.
func (iv TimeInterval) Contains(inner TimeInterval) bool {
	return !iv.Start.After(inner.Start) && !inner.End.After(iv.End)
}

// DurationHours returns the interval length in (possibly fractional) hours.
func (iv TimeInterval) DurationHours() float64 {
	return iv.End.Sub(iv.Start).Hours()
}
