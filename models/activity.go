package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityAction names the kind of a ledger entry.
type ActivityAction string

const (
	ActionCreated     ActivityAction = "created"
	ActionCompleted   ActivityAction = "completed"
	ActionDeleted     ActivityAction = "deleted"
	ActionArchived    ActivityAction = "archived"
	ActionUpdated     ActivityAction = "updated"
	ActionEarnedBadge ActivityAction = "earned_badge"
)

// TaskSnapshot is a by-value copy of task attributes at the time of an action.
type TaskSnapshot struct {
	Title    string   `json:"title"`
	Tag      string   `json:"tag"`
	Priority Priority `json:"priority"`
	Daily    bool     `json:"daily"`
	XP       int      `json:"xp"`
}

// Activity is an immutable ledger row. It never dereferences the live task for display.
type Activity struct {
	ID        uint                             `gorm:"primaryKey" json:"id"`
	UserID    uint                             `gorm:"not null;index" json:"user_id"`
	RoomID    uint                             `gorm:"not null;index:idx_activity_room_time" json:"room_id"`
	Action    ActivityAction                   `gorm:"size:32;not null;index" json:"action"`
	TaskID    *uint                            `gorm:"index" json:"task_id,omitempty"`
	XP        int                              `gorm:"column:xp;not null;default:0;index" json:"xp"`
	Snapshot  datatypes.JSONType[TaskSnapshot] `json:"snapshot"`
	Changed   datatypes.JSONSlice[string]      `json:"changed,omitempty"`
	Badge     string                           `gorm:"size:64" json:"badge,omitempty"`
	CreatedAt time.Time                        `gorm:"not null;index:idx_activity_room_time" json:"created_at"`
}
