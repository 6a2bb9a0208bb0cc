package models

import "time"

// UserStats holds lifetime progress for a user. CurrentStreak never exceeds LongestStreak.
type UserStats struct {
	ID                     uint       `gorm:"primaryKey" json:"-"`
	UserID                 uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	XP                     int        `gorm:"column:xp;not null;default:0" json:"xp"`
	Level                  int        `gorm:"not null;default:1" json:"level"`
	CurrentStreak          int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak          int        `gorm:"not null;default:0" json:"longest_streak"`
	StreakUpdate           string     `gorm:"size:10" json:"streak_update"`
	TasksCompleted         int        `gorm:"not null;default:0" json:"tasks_completed"`
	LastTaskCompletionDate *time.Time `json:"last_task_completion_date"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// DailyStats aggregates a user's progress inside one room for one calendar day.
type DailyStats struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_daily_user_room_day" json:"user_id"`
	RoomID         uint      `gorm:"not null;uniqueIndex:idx_daily_user_room_day;index:idx_daily_room_day" json:"room_id"`
	Day            string    `gorm:"size:10;not null;uniqueIndex:idx_daily_user_room_day;index:idx_daily_room_day" json:"day"`
	XP             int       `gorm:"column:xp;not null;default:0" json:"xp"`
	TasksCompleted int       `gorm:"not null;default:0" json:"tasks_completed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RoomDailyStats aggregates a room's progress for one calendar day.
// The average per active user is derived on read and never stored.
type RoomDailyStats struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	RoomID              uint      `gorm:"not null;uniqueIndex:idx_room_day" json:"room_id"`
	Day                 string    `gorm:"size:10;not null;uniqueIndex:idx_room_day" json:"day"`
	TotalXP             int       `gorm:"column:total_xp;not null;default:0" json:"total_xp"`
	TotalTasksCompleted int       `gorm:"not null;default:0" json:"total_tasks_completed"`
	ActiveUserCount     int       `gorm:"not null;default:0" json:"active_user_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AvgXPPerUser returns TotalXP divided by the distinct active users of the day.
func (s *RoomDailyStats) AvgXPPerUser() float64 {
	if s.ActiveUserCount <= 0 {
		return 0
	}
	return float64(s.TotalXP) / float64(s.ActiveUserCount)
}

// RoomDailyActiveUser is one member of a room's distinct active-user set for a day.
type RoomDailyActiveUser struct {
	ID     uint   `gorm:"primaryKey"`
	RoomID uint   `gorm:"not null;uniqueIndex:idx_room_day_user"`
	Day    string `gorm:"size:10;not null;uniqueIndex:idx_room_day_user"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_room_day_user"`
}

// MonthlyStats aggregates a user's progress inside one room for a "YYYY-MM" month.
type MonthlyStats struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_monthly_user_room_month" json:"user_id"`
	RoomID         uint      `gorm:"not null;uniqueIndex:idx_monthly_user_room_month" json:"room_id"`
	Month          string    `gorm:"size:7;not null;uniqueIndex:idx_monthly_user_room_month" json:"month"`
	XP             int       `gorm:"column:xp;not null;default:0" json:"xp"`
	TasksCompleted int       `gorm:"not null;default:0" json:"tasks_completed"`
	LevelSnapshot  int       `gorm:"not null;default:1" json:"level_snapshot"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (UserStats) TableName() string { return "user_stats" }

func (DailyStats) TableName() string { return "daily_stats" }

func (RoomDailyStats) TableName() string { return "room_daily_stats" }

func (RoomDailyActiveUser) TableName() string { return "room_daily_active_users" }

func (MonthlyStats) TableName() string { return "monthly_stats" }
