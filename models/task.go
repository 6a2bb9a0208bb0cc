package models

import (
	"time"

	"gorm.io/gorm"
)

// Priority orders how urgent a task is; it drives the XP multiplier.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is owned by a room and may be completed independently by every member.
// XP is computed once at creation and never recomputed.
type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RoomID      uint           `gorm:"index;not null" json:"room_id"`
	CreatorID   uint           `gorm:"index;not null" json:"creator_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Tag         string         `gorm:"size:32" json:"tag"`
	Priority    Priority       `gorm:"size:16;not null;default:'low'" json:"priority"`
	Daily       bool           `gorm:"not null;default:false" json:"daily"`
	Deadline    *time.Time     `json:"deadline"`
	Subtasks    int            `gorm:"not null;default:0" json:"subtasks"`
	XP          int            `gorm:"column:xp;not null" json:"xp"`
	CompletedBy []uint         `gorm:"-" json:"completed_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Snapshot copies the attributes recorded on activity entries.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		Title:    t.Title,
		Tag:      t.Tag,
		Priority: t.Priority,
		Daily:    t.Daily,
		XP:       t.XP,
	}
}

// HasCompleted reports whether userID is in the task's completedBy set.
func (t *Task) HasCompleted(userID uint) bool {
	for _, id := range t.CompletedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// TaskCompletion persists one member of a task's completedBy set.
type TaskCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      uint      `gorm:"not null;uniqueIndex:idx_task_completion" json:"task_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_task_completion;index" json:"user_id"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}
