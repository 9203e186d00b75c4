package entities

import (
	"fmt"
	"time"
)

// SpotConstraints is the read-only view of a parking spot the admission
// controller checks before any conflict lookup. Days use three-letter
// weekday names ("Mon".."Sun"); the daily window is "HH:MM" with "24:00"
// accepted as an end-of-day close.
type SpotConstraints struct {
	SpotID        string
	OwnerID       string
	PricePerHour  float64
	AvailableDays []string
	OpenTime      string
	CloseTime     string
	IsAvailable   bool
}

const minutesPerDay = 24 * 60

// ParseTimeOfDay converts "HH:MM" into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	if s == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (c SpotConstraints) allowsDay(day time.Weekday) bool {
	name := day.String()[:3]
	for _, d := range c.AvailableDays {
		if d == name {
			return true
		}
	}
	return false
}

// AllowsInterval reports whether every portion of the interval falls on an
// available day and inside the daily open window. Intervals may span
// multiple days; each day's portion is checked independently.
func (c SpotConstraints) AllowsInterval(iv TimeInterval) bool {
	openMin, err := ParseTimeOfDay(c.OpenTime)
	if err != nil {
		return false
	}
	closeMin, err := ParseTimeOfDay(c.CloseTime)
	if err != nil {
		return false
	}

	loc := iv.Start.Location()
	day := time.Date(iv.Start.Year(), iv.Start.Month(), iv.Start.Day(), 0, 0, 0, 0, loc)
	for day.Before(iv.End) {
		nextDay := day.AddDate(0, 0, 1)
		if !c.allowsDay(day.Weekday()) {
			return false
		}

		segStart := iv.Start
		if segStart.Before(day) {
			segStart = day
		}
		segEnd := iv.End
		if segEnd.After(nextDay) {
			segEnd = nextDay
		}

		// Compare against the window as instants so seconds are not
		// silently truncated away.
		opensAt := day.Add(time.Duration(openMin) * time.Minute)
		closesAt := day.Add(time.Duration(closeMin) * time.Minute)
		if segStart.Before(opensAt) || segEnd.After(closesAt) {
			return false
		}

		day = nextDay
	}
	return true
}
