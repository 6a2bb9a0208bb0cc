package stats

import (
	"time"

	"github.com/cppla/paperroom/models"
)

// UpdateStreak applies one completion at now to s. It reports false when the
// user was already credited for that day, in which case s is left untouched.
// A completion dated before the last credited day is treated the same way.
func UpdateStreak(s *models.UserStats, now time.Time, cal Calendar) bool {
	if s.LastTaskCompletionDate != nil {
		diff := cal.DaysBetween(*s.LastTaskCompletionDate, now)
		switch {
		case diff <= 0:
			return false
		case diff == 1:
			s.CurrentStreak++
		default:
			s.CurrentStreak = 1
		}
	} else {
		s.CurrentStreak = 1
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	at := now
	s.LastTaskCompletionDate = &at
	s.StreakUpdate = cal.Day(now)
	return true
}
