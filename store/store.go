// Package store defines the persistence boundary used by the stats engine.
// Implementations live in gormstore (SQL databases) and memstore (in-process).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/paperroom/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is soft-deleted.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the database aborted a transaction that may succeed on retry.
	ErrConflict = errors.New("transaction conflict")
)

// Store opens transactions and serves read-side queries.
type Store interface {
	// Transaction runs fn atomically. When fn returns an error nothing it wrote is persisted.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	Reader
}

// Tx is the write surface available inside a transaction.
type Tx interface {
	// Task returns a live task of the room with its completedBy set.
	Task(taskID, roomID uint) (*models.Task, error)
	CreateTask(t *models.Task) error
	UpdateTask(t *models.Task, fields ...string) error
	SoftDeleteTask(t *models.Task, at time.Time) error

	// AddCompletion set-adds userID to the task's completedBy. It reports false when already present.
	AddCompletion(taskID, userID uint, at time.Time) (bool, error)
	CompletedBy(taskID uint) ([]uint, error)

	// UserStatsForUpdate returns the user's lifetime row, creating it when absent, locked for the rest of the transaction.
	UserStatsForUpdate(userID uint) (*models.UserStats, error)
	SaveUserStats(s *models.UserStats) error

	IncrementDailyStats(userID, roomID uint, day string, xp int) error
	IncrementRoomDailyStats(roomID uint, day string, xp int) error
	// AddRoomDailyActiveUser set-adds userID to the room's active set for day and reports whether it was new.
	AddRoomDailyActiveUser(roomID uint, day string, userID uint) (bool, error)
	IncrementRoomActiveUsers(roomID uint, day string) error
	IncrementMonthlyStats(userID, roomID uint, month string, xp, level int) error

	AppendActivity(a *models.Activity) error
}

// Reader is the query surface used outside transactions.
type Reader interface {
	ListTasks(ctx context.Context, roomID uint) ([]models.Task, error)
	UserStats(ctx context.Context, userID uint) (*models.UserStats, error)
	DailyStats(ctx context.Context, userID, roomID uint, day string) (*models.DailyStats, error)
	RoomDailyStats(ctx context.Context, roomID uint, day string) (*models.RoomDailyStats, error)
	MonthlyStats(ctx context.Context, userID, roomID uint, month string) (*models.MonthlyStats, error)
	// RoomDailyXP returns per-user XP rows of a room between two day buckets, inclusive.
	RoomDailyXP(ctx context.Context, roomID uint, fromDay, toDay string) ([]DailyXP, error)
	RoomMembers(ctx context.Context, roomID uint) ([]Member, error)

	ListActivities(ctx context.Context, q ActivityQuery) ([]models.Activity, int64, error)
	SummarizeActivities(ctx context.Context, roomID uint, since, until time.Time) ([]ActionSummary, error)
}

// DailyXP is one user's XP for one day in a room.
type DailyXP struct {
	Day      string
	UserID   uint
	Username string
	XP       int
}

// Member is a room member resolved to a display name.
type Member struct {
	UserID   uint
	Username string
}

// ActivityQuery filters and pages the ledger. Zero values mean "no filter".
type ActivityQuery struct {
	RoomID uint
	UserID uint
	Action models.ActivityAction
	SortBy string
	Desc   bool
	Offset int
	Limit  int
}

// ActionSummary aggregates ledger entries of one action kind.
type ActionSummary struct {
	Action  models.ActivityAction `json:"action"`
	Count   int64                 `json:"count"`
	TotalXP int64                 `json:"total_xp"`
}

// SortableActivityFields are the indexed ledger columns a query may order by.
var SortableActivityFields = map[string]bool{
	"created_at": true,
	"xp":         true,
	"action":     true,
	"user_id":    true,
}
