package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidQuery reports an unknown action or sort field.
var ErrInvalidQuery = errors.New("invalid activity query")

// Append inserts one entry inside tx. Entries are never updated afterwards.
func Append(tx store.Tx, actor, roomID uint, e Entry, at time.Time) (*models.Activity, error) {
	a := &models.Activity{
		UserID:    actor,
		RoomID:    roomID,
		Action:    e.Action(),
		CreatedAt: at,
	}
	e.fill(a)
	if err := tx.AppendActivity(a); err != nil {
		return nil, fmt.Errorf("append %s activity: %w", a.Action, err)
	}
	return a, nil
}

// Query selects a page of a room's ledger. Zero values mean no filter.
type Query struct {
	RoomID   uint
	UserID   uint
	Action   string
	Sort     string
	Desc     bool
	Page     int
	PageSize int
}

// Page is one page of ledger entries.
type Page struct {
	Items    []models.Activity `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Ledger serves the read side of the activity log.
type Ledger struct {
	reader store.Reader
}

func New(r store.Reader) *Ledger {
	return &Ledger{reader: r}
}

// List returns a page of entries. Page is clamped to at least 1 and PageSize to 1..MaxPageSize.
func (l *Ledger) List(ctx context.Context, q Query) (*Page, error) {
	action, err := parseAction(q.Action)
	if err != nil {
		return nil, err
	}
	sortBy := q.Sort
	if sortBy == "" {
		sortBy = "created_at"
	}
	if !store.SortableActivityFields[sortBy] {
		return nil, fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, q.Sort)
	}

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	items, total, err := l.reader.ListActivities(ctx, store.ActivityQuery{
		RoomID: q.RoomID,
		UserID: q.UserID,
		Action: action,
		SortBy: sortBy,
		Desc:   q.Desc,
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if items == nil {
		items = []models.Activity{}
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// Summary groups a room's entries of the trailing window by action, counting them and summing XP.
func (l *Ledger) Summary(ctx context.Context, roomID uint, window time.Duration, now time.Time) ([]store.ActionSummary, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrInvalidQuery)
	}
	out, err := l.reader.SummarizeActivities(ctx, roomID, now.Add(-window), now)
	if err != nil {
		return nil, fmt.Errorf("summarize activities: %w", err)
	}
	if out == nil {
		out = []store.ActionSummary{}
	}
	return out, nil
}

func parseAction(s string) (models.ActivityAction, error) {
	a := models.ActivityAction(s)
	switch a {
	case "", models.ActionCreated, models.ActionCompleted, models.ActionDeleted,
		models.ActionArchived, models.ActionUpdated, models.ActionEarnedBadge:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidQuery, s)
}
