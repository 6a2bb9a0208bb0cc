// Package gormstore implements store.Store on top of gorm for MySQL, Postgres and SQLite.
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
)

// Store is the gorm-backed store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an opened gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table used by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Transaction runs fn inside a database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txn{db: tx})
	})
	return classify(err)
}

type txn struct {
	db *gorm.DB
}

func (x *txn) Task(taskID, roomID uint) (*models.Task, error) {
	var t models.Task
	err := x.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND room_id = ?", taskID, roomID).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	ids, err := x.CompletedBy(t.ID)
	if err != nil {
		return nil, err
	}
	t.CompletedBy = ids
	return &t, nil
}

func (x *txn) CreateTask(t *models.Task) error {
	return x.db.Create(t).Error
}

func (x *txn) UpdateTask(t *models.Task, fields ...string) error {
	if len(fields) == 0 {
		return x.db.Save(t).Error
	}
	cols := append(append([]string{}, fields...), "updated_at")
	return x.db.Model(t).Select(cols).Updates(t).Error
}

func (x *txn) SoftDeleteTask(t *models.Task, at time.Time) error {
	res := x.db.Model(&models.Task{}).Where("id = ?", t.ID).Update("deleted_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	t.DeletedAt = gorm.DeletedAt{Time: at, Valid: true}
	return nil
}

func (x *txn) AddCompletion(taskID, userID uint, at time.Time) (bool, error) {
	res := x.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TaskCompletion{TaskID: taskID, UserID: userID, CompletedAt: at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (x *txn) CompletedBy(taskID uint) ([]uint, error) {
	var ids []uint
	err := x.db.Model(&models.TaskCompletion{}).
		Where("task_id = ?", taskID).
		Order("id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (x *txn) UserStatsForUpdate(userID uint) (*models.UserStats, error) {
	seed := models.UserStats{UserID: userID, Level: 1}
	if err := x.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var s models.UserStats
	err := x.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (x *txn) SaveUserStats(s *models.UserStats) error {
	return x.db.Save(s).Error
}

func (x *txn) IncrementDailyStats(userID, roomID uint, day string, xp int) error {
	return x.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "room_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xp":              gorm.Expr("daily_stats.xp + ?", xp),
			"tasks_completed": gorm.Expr("daily_stats.tasks_completed + 1"),
			"updated_at":      time.Now(),
		}),
	}).Create(&models.DailyStats{UserID: userID, RoomID: roomID, Day: day, XP: xp, TasksCompleted: 1}).Error
}

func (x *txn) IncrementRoomDailyStats(roomID uint, day string, xp int) error {
	return x.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_xp":              gorm.Expr("room_daily_stats.total_xp + ?", xp),
			"total_tasks_completed": gorm.Expr("room_daily_stats.total_tasks_completed + 1"),
			"updated_at":            time.Now(),
		}),
	}).Create(&models.RoomDailyStats{RoomID: roomID, Day: day, TotalXP: xp, TotalTasksCompleted: 1}).Error
}

func (x *txn) AddRoomDailyActiveUser(roomID uint, day string, userID uint) (bool, error) {
	res := x.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RoomDailyActiveUser{RoomID: roomID, Day: day, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (x *txn) IncrementRoomActiveUsers(roomID uint, day string) error {
	res := x.db.Model(&models.RoomDailyStats{}).
		Where("room_id = ? AND day = ?", roomID, day).
		UpdateColumn("active_user_count", gorm.Expr("active_user_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (x *txn) IncrementMonthlyStats(userID, roomID uint, month string, xp, level int) error {
	return x.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "room_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xp":              gorm.Expr("monthly_stats.xp + ?", xp),
			"tasks_completed": gorm.Expr("monthly_stats.tasks_completed + 1"),
			"level_snapshot":  level,
			"updated_at":      time.Now(),
		}),
	}).Create(&models.MonthlyStats{UserID: userID, RoomID: roomID, Month: month, XP: xp, TasksCompleted: 1, LevelSnapshot: level}).Error
}

func (x *txn) AppendActivity(a *models.Activity) error {
	return x.db.Create(a).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
