package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
	"github.com/cppla/paperroom/store/gormstore"
	"github.com/cppla/paperroom/store/memstore"
	"github.com/cppla/paperroom/store/storetest"
)

var base = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]store.Store {
	return map[string]store.Store{
		"memory": memstore.New(),
		"sqlite": gormstore.New(storetest.OpenSQLite(t)),
	}
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	task := &models.Task{ID: 11, Title: "Write report", Tag: "work", Priority: models.PriorityHigh, XP: 20}
	entries := []struct {
		actor uint
		room  uint
		entry Entry
		at    time.Time
	}{
		{1, 1, TaskCreated{TaskID: 11, Snapshot: Snapshot(task)}, base.Add(-72 * time.Hour)},
		{1, 1, TaskCompleted{TaskID: 11, Snapshot: Snapshot(task)}, base.Add(-48 * time.Hour)},
		{2, 1, TaskCompleted{TaskID: 11, Snapshot: Snapshot(task)}, base.Add(-2 * time.Hour)},
		{2, 1, TaskUpdated{TaskID: 11, Snapshot: Snapshot(task), Changed: []string{"title"}}, base.Add(-time.Hour)},
		{2, 1, BadgeEarned{Badge: "first-week"}, base.Add(-30 * time.Minute)},
		{3, 2, TaskCompleted{TaskID: 99, Snapshot: models.TaskSnapshot{Title: "other", XP: 50}}, base.Add(-time.Hour)},
		{1, 1, TaskDeleted{TaskID: 11, Snapshot: Snapshot(task)}, base.Add(-10 * 24 * time.Hour)},
	}
	for _, e := range entries {
		err := st.Transaction(context.Background(), func(tx store.Tx) error {
			_, err := Append(tx, e.actor, e.room, e.entry, e.at)
			return err
		})
		require.NoError(t, err)
	}
}

func TestAppend_SnapshotIsByValue(t *testing.T) {
	st := memstore.New()
	task := &models.Task{ID: 4, Title: "Before", Priority: models.PriorityLow, XP: 10}
	entry := TaskCreated{TaskID: task.ID, Snapshot: Snapshot(task)}
	task.Title = "After"
	task.XP = 999

	var got *models.Activity
	require.NoError(t, st.Transaction(context.Background(), func(tx store.Tx) error {
		var err error
		got, err = Append(tx, 1, 1, entry, base)
		return err
	}))
	assert.Equal(t, models.ActionCreated, got.Action)
	assert.Equal(t, "Before", got.Snapshot.Data().Title)
	assert.Equal(t, 10, got.XP)
	require.NotNil(t, got.TaskID)
	assert.Equal(t, uint(4), *got.TaskID)
}

func TestList(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, st)
			l := New(st)
			ctx := context.Background()

			page, err := l.List(ctx, Query{RoomID: 1, Desc: true})
			require.NoError(t, err)
			assert.Equal(t, int64(6), page.Total)
			require.Len(t, page.Items, 6)
			assert.Equal(t, models.ActionEarnedBadge, page.Items[0].Action)
			assert.Equal(t, "first-week", page.Items[0].Badge)
			assert.Equal(t, models.ActionDeleted, page.Items[5].Action)

			page, err = l.List(ctx, Query{RoomID: 1, Action: "completed"})
			require.NoError(t, err)
			assert.Equal(t, int64(2), page.Total)
			assert.Equal(t, uint(1), page.Items[0].UserID)

			page, err = l.List(ctx, Query{RoomID: 1, UserID: 2, Sort: "action"})
			require.NoError(t, err)
			require.Len(t, page.Items, 3)
			assert.Equal(t, models.ActionCompleted, page.Items[0].Action)
			assert.Equal(t, models.ActionEarnedBadge, page.Items[1].Action)
			assert.Equal(t, []string{"title"}, []string(page.Items[2].Changed))

			page, err = l.List(ctx, Query{RoomID: 1, Page: 2, PageSize: 4})
			require.NoError(t, err)
			assert.Equal(t, int64(6), page.Total)
			assert.Len(t, page.Items, 2)

			page, err = l.List(ctx, Query{RoomID: 1, Page: 9})
			require.NoError(t, err)
			assert.Empty(t, page.Items)
			assert.Equal(t, int64(6), page.Total)
		})
	}
}

func TestList_Normalization(t *testing.T) {
	l := New(memstore.New())
	tests := []struct {
		name               string
		in                 Query
		wantPage, wantSize int
	}{
		{"defaults", Query{}, 1, DefaultPageSize},
		{"negative page", Query{Page: -3, PageSize: 5}, 1, 5},
		{"oversized", Query{Page: 2, PageSize: 1000}, 2, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := l.List(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantSize, page.PageSize)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestList_RejectsUnknownFields(t *testing.T) {
	l := New(memstore.New())
	_, err := l.List(context.Background(), Query{Action: "exploded"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = l.List(context.Background(), Query{Sort: "snapshot; DROP TABLE activities"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSummary(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, st)
			l := New(st)

			got, err := l.Summary(context.Background(), 1, 7*24*time.Hour, base)
			require.NoError(t, err)
			assert.Equal(t, []store.ActionSummary{
				{Action: models.ActionCompleted, Count: 2, TotalXP: 40},
				{Action: models.ActionCreated, Count: 1, TotalXP: 20},
				{Action: models.ActionEarnedBadge, Count: 1, TotalXP: 0},
				{Action: models.ActionUpdated, Count: 1, TotalXP: 20},
			}, got)

			got, err = l.Summary(context.Background(), 1, 24*time.Hour, base)
			require.NoError(t, err)
			assert.Len(t, got, 3)

			_, err = l.Summary(context.Background(), 1, 0, base)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}
