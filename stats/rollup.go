package stats

import (
	"fmt"
	"time"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
)

// Event is one completion to fold into the rollups.
type Event struct {
	UserID uint
	RoomID uint
	XP     int
	// Level is the user's level as resolved by the caller; it is recorded, not computed.
	Level int
	At    time.Time
}

// Rollup advances the lifetime, daily, room-daily and monthly aggregates.
type Rollup struct {
	Calendar Calendar
}

// NewRollup returns a Rollup bucketing by cal.
func NewRollup(cal Calendar) *Rollup {
	return &Rollup{Calendar: cal}
}

// Apply writes every aggregate for ev through tx. The first failing write is
// returned and the caller must abort the transaction.
func (r *Rollup) Apply(tx store.Tx, ev Event) (*models.UserStats, error) {
	day := r.Calendar.Day(ev.At)
	month := r.Calendar.Month(ev.At)

	life, err := tx.UserStatsForUpdate(ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("lifetime stats: %w", err)
	}
	life.XP += ev.XP
	life.TasksCompleted++
	life.Level = ev.Level
	if !UpdateStreak(life, ev.At, r.Calendar) {
		if life.LastTaskCompletionDate == nil || ev.At.After(*life.LastTaskCompletionDate) {
			at := ev.At
			life.LastTaskCompletionDate = &at
		}
	}
	if err := tx.SaveUserStats(life); err != nil {
		return nil, fmt.Errorf("save lifetime stats: %w", err)
	}

	if err := tx.IncrementDailyStats(ev.UserID, ev.RoomID, day, ev.XP); err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	if err := tx.IncrementRoomDailyStats(ev.RoomID, day, ev.XP); err != nil {
		return nil, fmt.Errorf("room daily stats: %w", err)
	}
	added, err := tx.AddRoomDailyActiveUser(ev.RoomID, day, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("room active users: %w", err)
	}
	if added {
		if err := tx.IncrementRoomActiveUsers(ev.RoomID, day); err != nil {
			return nil, fmt.Errorf("room active user count: %w", err)
		}
	}

	if err := tx.IncrementMonthlyStats(ev.UserID, ev.RoomID, month, ev.XP, ev.Level); err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	return life, nil
}
