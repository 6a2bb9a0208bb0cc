package gormstore

import (
	"context"
	"time"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
)

func (s *Store) ListTasks(ctx context.Context, roomID uint) ([]models.Task, error) {
	db := s.db.WithContext(ctx)
	var tasks []models.Task
	if err := db.Where("room_id = ?", roomID).Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	var completions []models.TaskCompletion
	if err := db.Where("task_id IN ?", ids).Order("id").Find(&completions).Error; err != nil {
		return nil, err
	}
	byTask := make(map[uint][]uint, len(tasks))
	for _, c := range completions {
		byTask[c.TaskID] = append(byTask[c.TaskID], c.UserID)
	}
	for i := range tasks {
		tasks[i].CompletedBy = byTask[tasks[i].ID]
	}
	return tasks, nil
}

func (s *Store) UserStats(ctx context.Context, userID uint) (*models.UserStats, error) {
	var out models.UserStats
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) DailyStats(ctx context.Context, userID, roomID uint, day string) (*models.DailyStats, error) {
	var out models.DailyStats
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND room_id = ? AND day = ?", userID, roomID, day).
		First(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) RoomDailyStats(ctx context.Context, roomID uint, day string) (*models.RoomDailyStats, error) {
	var out models.RoomDailyStats
	if err := s.db.WithContext(ctx).Where("room_id = ? AND day = ?", roomID, day).First(&out).Error; err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) MonthlyStats(ctx context.Context, userID, roomID uint, month string) (*models.MonthlyStats, error) {
	var out models.MonthlyStats
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND room_id = ? AND month = ?", userID, roomID, month).
		First(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) RoomDailyXP(ctx context.Context, roomID uint, fromDay, toDay string) ([]store.DailyXP, error) {
	var rows []store.DailyXP
	err := s.db.WithContext(ctx).
		Table("daily_stats AS d").
		Select("d.day AS day, d.user_id AS user_id, COALESCE(u.username, '') AS username, d.xp AS xp").
		Joins("LEFT JOIN users u ON u.id = d.user_id").
		Where("d.room_id = ? AND d.day >= ? AND d.day <= ?", roomID, fromDay, toDay).
		Order("d.day, d.user_id").
		Scan(&rows).Error
	return rows, err
}

func (s *Store) RoomMembers(ctx context.Context, roomID uint) ([]store.Member, error) {
	var rows []store.Member
	err := s.db.WithContext(ctx).
		Table("room_members AS m").
		Select("m.user_id AS user_id, u.username AS username").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.room_id = ?", roomID).
		Order("u.username").
		Scan(&rows).Error
	return rows, err
}

func (s *Store) ListActivities(ctx context.Context, q store.ActivityQuery) ([]models.Activity, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Activity{})
	if q.RoomID != 0 {
		query = query.Where("room_id = ?", q.RoomID)
	}
	if q.UserID != 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := q.SortBy
	if !store.SortableActivityFields[sortBy] {
		sortBy = "created_at"
	}
	dir := " ASC"
	if q.Desc {
		dir = " DESC"
	}

	query = query.Order(sortBy + dir).Order("id" + dir).Offset(q.Offset)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	var items []models.Activity
	err := query.Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) SummarizeActivities(ctx context.Context, roomID uint, since, until time.Time) ([]store.ActionSummary, error) {
	var out []store.ActionSummary
	err := s.db.WithContext(ctx).
		Model(&models.Activity{}).
		Select("action, COUNT(*) AS count, COALESCE(SUM(xp), 0) AS total_xp").
		Where("room_id = ? AND created_at >= ? AND created_at <= ?", roomID, since, until).
		Group("action").
		Order("action").
		Scan(&out).Error
	return out, err
}
