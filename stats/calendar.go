// Package stats maintains streaks and the denormalized XP rollups, and
// answers the chart queries built on top of them.
package stats

import (
	"fmt"
	"time"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Calendar buckets instants into days and months of one fixed timezone.
// Every rollup key and streak comparison goes through the same Calendar.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the IANA zone name. An empty name means UTC.
func NewCalendar(name string) (Calendar, error) {
	if name == "" {
		return Calendar{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("stats: load timezone %q: %w", name, err)
	}
	return Calendar{loc: loc}, nil
}

// UTC is the default calendar.
func UTC() Calendar { return Calendar{loc: time.UTC} }

// Location returns the calendar's zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Midnight returns the start of t's day.
func (c Calendar) Midnight(t time.Time) time.Time {
	lt := t.In(c.Location())
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.Location())
}

// Day returns the "YYYY-MM-DD" bucket of t.
func (c Calendar) Day(t time.Time) string {
	return t.In(c.Location()).Format(dayLayout)
}

// Month returns the "YYYY-MM" bucket of t.
func (c Calendar) Month(t time.Time) string {
	return t.In(c.Location()).Format(monthLayout)
}

// DaysBetween counts calendar days from a to b. It is negative when b is on an earlier day.
func (c Calendar) DaysBetween(a, b time.Time) int {
	ma, mb := c.Midnight(a), c.Midnight(b)
	// Dates are compared through UTC so DST shifts do not produce 23 or 25 hour days.
	da := time.Date(ma.Year(), ma.Month(), ma.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(mb.Year(), mb.Month(), mb.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// LastDays returns the n day buckets ending with now's day, oldest first.
func (c Calendar) LastDays(now time.Time, n int) []string {
	start := c.Midnight(now)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = start.AddDate(0, 0, i-(n-1)).Format(dayLayout)
	}
	return out
}
