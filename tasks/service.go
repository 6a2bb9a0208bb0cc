// Package tasks manages the lifecycle of room tasks. Every mutation appends
// its ledger entry in the same transaction as the write.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cppla/paperroom/ledger"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/points"
	"github.com/cppla/paperroom/store"
)

const (
	maxTitleLen = 255
	maxTagLen   = 32
)

var (
	ErrInvalid  = errors.New("invalid task")
	ErrNotFound = errors.New("task not found")
)

// Draft is the input of Create.
type Draft struct {
	Title       string
	Description string
	Tag         string
	Priority    models.Priority
	Daily       bool
	Deadline    *time.Time
	Subtasks    int
}

// Patch lists the editable fields. Nil fields are left alone.
type Patch struct {
	Title         *string
	Description   *string
	Tag           *string
	Priority      *models.Priority
	Daily         *bool
	Deadline      *time.Time
	ClearDeadline bool
}

type Service struct {
	store store.Store
	calc  *points.Calculator
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st store.Store, calc *points.Calculator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, calc: calc, log: log, now: time.Now}
}

// Create validates d, fixes its XP once and stores the task.
func (s *Service) Create(ctx context.Context, actor, roomID uint, d Draft) (*models.Task, error) {
	now := s.now()
	if d.Priority == "" {
		d.Priority = models.PriorityLow
	}
	task := &models.Task{
		RoomID:      roomID,
		CreatorID:   actor,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Tag:         strings.TrimSpace(d.Tag),
		Priority:    d.Priority,
		Daily:       d.Daily,
		Deadline:    d.Deadline,
		Subtasks:    d.Subtasks,
	}
	if err := validate(task, now, true); err != nil {
		return nil, err
	}
	task.XP = s.calc.Compute(points.InputFromTask(task), now)

	err := s.store.Transaction(ctx, func(tx store.Tx) error {
		if err := tx.CreateTask(task); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		_, err := ledger.Append(tx, actor, roomID, ledger.TaskCreated{TaskID: task.ID, Snapshot: ledger.Snapshot(task)}, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task created", zap.Uint("task_id", task.ID), zap.Uint("room_id", roomID), zap.Int("xp", task.XP))
	return task, nil
}

// Update applies p. The task's XP is never recomputed.
func (s *Service) Update(ctx context.Context, actor, roomID, taskID uint, p Patch) (*models.Task, error) {
	now := s.now()
	var out *models.Task
	err := s.store.Transaction(ctx, func(tx store.Tx) error {
		task, err := tx.Task(taskID, roomID)
		if err != nil {
			return lookupErr(err)
		}

		changed := applyPatch(task, p)
		if len(changed) == 0 {
			out = task
			return nil
		}
		if err := validate(task, now, slices.Contains(changed, "deadline")); err != nil {
			return err
		}
		if err := tx.UpdateTask(task, changed...); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		entry := ledger.TaskUpdated{TaskID: task.ID, Snapshot: ledger.Snapshot(task), Changed: changed}
		if _, err := ledger.Append(tx, actor, roomID, entry, now); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete soft-deletes the task. The retention sweep removes it later.
func (s *Service) Delete(ctx context.Context, actor, roomID, taskID uint) error {
	now := s.now()
	err := s.store.Transaction(ctx, func(tx store.Tx) error {
		task, err := tx.Task(taskID, roomID)
		if err != nil {
			return lookupErr(err)
		}
		if err := tx.SoftDeleteTask(task, now); err != nil {
			return lookupErr(err)
		}
		_, err = ledger.Append(tx, actor, roomID, ledger.TaskDeleted{TaskID: task.ID, Snapshot: ledger.Snapshot(task)}, now)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("task deleted", zap.Uint("task_id", taskID), zap.Uint("room_id", roomID))
	return nil
}

// List returns the room's live tasks, newest first.
func (s *Service) List(ctx context.Context, roomID uint) ([]models.Task, error) {
	out, err := s.store.ListTasks(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func applyPatch(t *models.Task, p Patch) []string {
	var changed []string
	if p.Title != nil && strings.TrimSpace(*p.Title) != t.Title {
		t.Title = strings.TrimSpace(*p.Title)
		changed = append(changed, "title")
	}
	if p.Description != nil && *p.Description != t.Description {
		t.Description = *p.Description
		changed = append(changed, "description")
	}
	if p.Tag != nil && strings.TrimSpace(*p.Tag) != t.Tag {
		t.Tag = strings.TrimSpace(*p.Tag)
		changed = append(changed, "tag")
	}
	if p.Priority != nil && *p.Priority != t.Priority {
		t.Priority = *p.Priority
		changed = append(changed, "priority")
	}
	if p.Daily != nil && *p.Daily != t.Daily {
		t.Daily = *p.Daily
		changed = append(changed, "daily")
	}
	switch {
	case p.ClearDeadline && t.Deadline != nil:
		t.Deadline = nil
		changed = append(changed, "deadline")
	case p.Deadline != nil && (t.Deadline == nil || !p.Deadline.Equal(*t.Deadline)):
		d := *p.Deadline
		t.Deadline = &d
		changed = append(changed, "deadline")
	}
	return changed
}

func validate(t *models.Task, now time.Time, checkDeadline bool) error {
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case utf8.RuneCountInString(t.Title) > maxTitleLen:
		return fmt.Errorf("%w: title is longer than %d characters", ErrInvalid, maxTitleLen)
	case utf8.RuneCountInString(t.Tag) > maxTagLen:
		return fmt.Errorf("%w: tag is longer than %d characters", ErrInvalid, maxTagLen)
	case !t.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, t.Priority)
	case t.Daily && t.Deadline != nil:
		return fmt.Errorf("%w: daily tasks cannot have a deadline", ErrInvalid)
	case t.Subtasks < 0:
		return fmt.Errorf("%w: subtasks cannot be negative", ErrInvalid)
	case checkDeadline && t.Deadline != nil && !t.Deadline.After(now):
		return fmt.Errorf("%w: deadline must be in the future", ErrInvalid)
	}
	return nil
}

func lookupErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("load task: %w", err)
}
