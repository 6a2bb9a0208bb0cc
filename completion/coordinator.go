// Package completion records a member completing a room task: the completion
// marker, the XP award, the streak, every rollup and the ledger entry commit
// together or not at all.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/paperroom/ledger"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/stats"
	"github.com/cppla/paperroom/store"
)

// DefaultMaxAttempts bounds retries of transactions aborted by a store conflict.
const DefaultMaxAttempts = 3

var (
	ErrNotFound          = errors.New("task not found")
	ErrAlreadyCompleted  = errors.New("task already completed by user")
	ErrTransactionFailed = errors.New("completion transaction failed")
)

// Request identifies the caller and the task. CurrentLevel is resolved by the caller.
type Request struct {
	TaskID       uint
	UserID       uint
	RoomID       uint
	CurrentLevel int
}

// Result is the state after a successful completion.
type Result struct {
	Task      *models.Task      `json:"task"`
	XPAwarded int               `json:"xp_awarded"`
	Stats     *models.UserStats `json:"stats"`
}

// Coordinator runs completions against an injected store.
type Coordinator struct {
	store       store.Store
	rollup      *stats.Rollup
	log         *zap.Logger
	maxAttempts int
	now         func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithMaxAttempts sets how many times a conflicting transaction is tried in total.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(st store.Store, rollup *stats.Rollup, log *zap.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{
		store:       st,
		rollup:      rollup,
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete marks the task completed by the user. It returns ErrNotFound,
// ErrAlreadyCompleted (nothing written) or ErrTransactionFailed (nothing
// written, safe to retry).
func (c *Coordinator) Complete(ctx context.Context, req Request) (*Result, error) {
	for attempt := 1; ; attempt++ {
		res, err := c.completeOnce(ctx, req)
		switch {
		case err == nil:
			c.log.Info("task completed",
				zap.Uint("task_id", req.TaskID),
				zap.Uint("user_id", req.UserID),
				zap.Uint("room_id", req.RoomID),
				zap.Int("xp", res.XPAwarded),
				zap.Int("streak", res.Stats.CurrentStreak),
			)
			return res, nil
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyCompleted):
			return nil, err
		case errors.Is(err, store.ErrConflict) && attempt < c.maxAttempts && ctx.Err() == nil:
			c.log.Warn("completion conflict, retrying",
				zap.Uint("task_id", req.TaskID),
				zap.Uint("user_id", req.UserID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		default:
			c.log.Error("completion failed",
				zap.Uint("task_id", req.TaskID),
				zap.Uint("user_id", req.UserID),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
		}
	}
}

func (c *Coordinator) completeOnce(ctx context.Context, req Request) (*Result, error) {
	now := c.now()
	level := req.CurrentLevel
	if level < 1 {
		level = 1
	}

	var res *Result
	err := c.store.Transaction(ctx, func(tx store.Tx) error {
		task, err := tx.Task(req.TaskID, req.RoomID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		if task.HasCompleted(req.UserID) {
			return ErrAlreadyCompleted
		}

		added, err := tx.AddCompletion(task.ID, req.UserID, now)
		if err != nil {
			return fmt.Errorf("add completion: %w", err)
		}
		if !added {
			return ErrAlreadyCompleted
		}

		life, err := c.rollup.Apply(tx, stats.Event{
			UserID: req.UserID,
			RoomID: req.RoomID,
			XP:     task.XP,
			Level:  level,
			At:     now,
		})
		if err != nil {
			return err
		}

		entry := ledger.TaskCompleted{TaskID: task.ID, Snapshot: ledger.Snapshot(task)}
		if _, err := ledger.Append(tx, req.UserID, req.RoomID, entry, now); err != nil {
			return err
		}

		ids, err := tx.CompletedBy(task.ID)
		if err != nil {
			return fmt.Errorf("reload completions: %w", err)
		}
		task.CompletedBy = ids
		res = &Result{Task: task, XPAwarded: task.XP, Stats: life}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
