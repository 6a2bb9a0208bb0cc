// Package jobs runs the service's background maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/paperroom/models"
)

const (
	DefaultGrace    = 30 * 24 * time.Hour
	DefaultSchedule = "@every 1h"
	sweepBatch      = 500
)

// Retention hard-deletes tasks that have been soft-deleted for longer than Grace.
// Ledger entries keep their own snapshots and are not touched.
type Retention struct {
	db    *gorm.DB
	grace time.Duration
	log   *zap.Logger
	cron  *cron.Cron
}

func NewRetention(db *gorm.DB, grace time.Duration, log *zap.Logger) *Retention {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retention{db: db, grace: grace, log: log}
}

// Sweep removes expired tasks together with their completion rows and returns how many tasks went.
func (r *Retention) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-r.grace)
	var removed int64
	for {
		var ids []uint
		err := r.db.WithContext(ctx).Unscoped().
			Model(&models.Task{}).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Order("id").
			Limit(sweepBatch).
			Pluck("id", &ids).Error
		if err != nil {
			return removed, fmt.Errorf("select expired tasks: %w", err)
		}
		if len(ids) == 0 {
			return removed, nil
		}

		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskCompletion{}).Error; err != nil {
				return err
			}
			res := tx.Unscoped().Where("id IN ?", ids).Delete(&models.Task{})
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("purge expired tasks: %w", err)
		}
		if len(ids) < sweepBatch {
			return removed, nil
		}
	}
}

// Start schedules Sweep at spec (robfig/cron syntax, "@every 1h" when empty).
func (r *Retention) Start(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := r.Sweep(ctx, time.Now())
		if err != nil {
			r.log.Error("retention sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			r.log.Info("retention sweep", zap.Int64("tasks_removed", n))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention %q: %w", spec, err)
	}
	r.cron = c
	c.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Retention) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
