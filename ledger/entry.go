// Package ledger is the append-only activity log of a room.
package ledger

import (
	"gorm.io/datatypes"

	"github.com/cppla/paperroom/models"
)

// Entry is one typed ledger variant. Each variant carries only the fields its action needs.
type Entry interface {
	Action() models.ActivityAction
	fill(a *models.Activity)
}

// Snapshot copies the task attributes an entry records. Later edits to the task do not reach it.
func Snapshot(t *models.Task) models.TaskSnapshot {
	return t.Snapshot()
}

type taskRef struct {
	TaskID   uint
	Snapshot models.TaskSnapshot
}

func (r taskRef) fill(a *models.Activity) {
	id := r.TaskID
	a.TaskID = &id
	a.XP = r.Snapshot.XP
	a.Snapshot = datatypes.NewJSONType(r.Snapshot)
}

// TaskCreated records a new task.
type TaskCreated taskRef

func (TaskCreated) Action() models.ActivityAction { return models.ActionCreated }
func (e TaskCreated) fill(a *models.Activity) { taskRef(e).fill(a) }

// TaskCompleted records one member completing a task.
type TaskCompleted taskRef

func (TaskCompleted) Action() models.ActivityAction { return models.ActionCompleted }
func (e TaskCompleted) fill(a *models.Activity) { taskRef(e).fill(a) }

// TaskDeleted records a soft delete.
type TaskDeleted taskRef

func (TaskDeleted) Action() models.ActivityAction { return models.ActionDeleted }
func (e TaskDeleted) fill(a *models.Activity) { taskRef(e).fill(a) }

// TaskArchived records a task leaving the active board without being deleted.
type TaskArchived taskRef

func (TaskArchived) Action() models.ActivityAction { return models.ActionArchived }
func (e TaskArchived) fill(a *models.Activity) { taskRef(e).fill(a) }

// TaskUpdated records an edit and the names of the fields that changed.
type TaskUpdated struct {
	TaskID   uint
	Snapshot models.TaskSnapshot
	Changed  []string
}

func (TaskUpdated) Action() models.ActivityAction { return models.ActionUpdated }

func (e TaskUpdated) fill(a *models.Activity) {
	taskRef{TaskID: e.TaskID, Snapshot: e.Snapshot}.fill(a)
	a.Changed = append([]string(nil), e.Changed...)
}

// BadgeEarned records an achievement. It has no task.
type BadgeEarned struct {
	Badge string
}

func (BadgeEarned) Action() models.ActivityAction { return models.ActionEarnedBadge }
func (e BadgeEarned) fill(a *models.Activity) { a.Badge = e.Badge }
