package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store/storetest"
)

func TestSweep(t *testing.T) {
	db := storetest.OpenSQLite(t)
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	live := &models.Task{RoomID: 1, CreatorID: 1, Title: "live", Priority: models.PriorityLow, XP: 10}
	recent := &models.Task{RoomID: 1, CreatorID: 1, Title: "recent", Priority: models.PriorityLow, XP: 10}
	expired := &models.Task{RoomID: 1, CreatorID: 1, Title: "expired", Priority: models.PriorityLow, XP: 10}
	for _, task := range []*models.Task{live, recent, expired} {
		require.NoError(t, db.Create(task).Error)
	}
	require.NoError(t, db.Model(recent).Update("deleted_at", now.Add(-24*time.Hour)).Error)
	require.NoError(t, db.Model(expired).Update("deleted_at", now.Add(-40*24*time.Hour)).Error)
	require.NoError(t, db.Create(&models.TaskCompletion{TaskID: expired.ID, UserID: 1, CompletedAt: now.Add(-50 * 24 * time.Hour)}).Error)
	require.NoError(t, db.Create(&models.TaskCompletion{TaskID: live.ID, UserID: 1, CompletedAt: now}).Error)

	r := NewRetention(db, 0, nil)
	n, err := r.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining []models.Task
	require.NoError(t, db.Unscoped().Order("id").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, "live", remaining[0].Title)
	assert.Equal(t, "recent", remaining[1].Title)

	var completions int64
	require.NoError(t, db.Model(&models.TaskCompletion{}).Count(&completions).Error)
	assert.Equal(t, int64(1), completions)

	n, err = r.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	r := NewRetention(&gorm.DB{}, time.Hour, nil)
	assert.Error(t, r.Start("every now and then"))
	r.Stop()
}
