package completion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/paperroom/ledger"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/points"
	"github.com/cppla/paperroom/stats"
	"github.com/cppla/paperroom/store"
	"github.com/cppla/paperroom/store/gormstore"
	"github.com/cppla/paperroom/store/memstore"
	"github.com/cppla/paperroom/store/storetest"
)

const roomID = 1

var clock = time.Date(2024, time.June, 3, 15, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]store.Store {
	return map[string]store.Store{
		"memory": memstore.New(),
		"sqlite": gormstore.New(storetest.OpenSQLite(t)),
	}
}

func newCoordinator(t *testing.T, st store.Store, opts ...Option) *Coordinator {
	opts = append([]Option{WithClock(func() time.Time { return clock })}, opts...)
	return New(st, stats.NewRollup(stats.UTC()), zaptest.NewLogger(t), opts...)
}

func createTask(t *testing.T, st store.Store, task *models.Task) *models.Task {
	t.Helper()
	if task.RoomID == 0 {
		task.RoomID = roomID
	}
	if task.CreatorID == 0 {
		task.CreatorID = 1
	}
	if task.Priority == "" {
		task.Priority = models.PriorityLow
	}
	task.XP = points.NewCalculator(points.DefaultWeights()).Compute(points.InputFromTask(task), clock)
	require.NoError(t, st.Transaction(context.Background(), func(tx store.Tx) error {
		return tx.CreateTask(task)
	}))
	return task
}

func TestComplete_EndToEnd(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := createTask(t, st, &models.Task{
				Title:       "Prepare quarterly review",
				Description: strings.Repeat("x", 120),
				Priority:    models.PriorityUrgent,
			})
			require.Equal(t, 45, task.XP)

			res, err := newCoordinator(t, st).Complete(ctx, Request{TaskID: task.ID, UserID: 7, RoomID: roomID, CurrentLevel: 1})
			require.NoError(t, err)
			assert.Equal(t, 45, res.XPAwarded)
			assert.Equal(t, []uint{7}, res.Task.CompletedBy)

			life, err := st.UserStats(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, 45, life.XP)
			assert.Equal(t, 1, life.TasksCompleted)
			assert.Equal(t, 1, life.CurrentStreak)
			assert.Equal(t, 1, life.LongestStreak)
			assert.Equal(t, "2024-06-03", life.StreakUpdate)

			daily, err := st.DailyStats(ctx, 7, roomID, "2024-06-03")
			require.NoError(t, err)
			assert.Equal(t, 45, daily.XP)

			room, err := st.RoomDailyStats(ctx, roomID, "2024-06-03")
			require.NoError(t, err)
			assert.Equal(t, 45, room.TotalXP)
			assert.Equal(t, 1, room.ActiveUserCount)

			monthly, err := st.MonthlyStats(ctx, 7, roomID, "2024-06")
			require.NoError(t, err)
			assert.Equal(t, 45, monthly.XP)
			assert.Equal(t, 1, monthly.LevelSnapshot)

			page, err := ledger.New(st).List(ctx, ledger.Query{RoomID: roomID, Action: string(models.ActionCompleted)})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			assert.Equal(t, 45, page.Items[0].Snapshot.Data().XP)
			assert.Equal(t, uint(7), page.Items[0].UserID)
		})
	}
}

func TestComplete_Idempotent(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := createTask(t, st, &models.Task{Title: "Water plants", Priority: models.PriorityMedium})
			c := newCoordinator(t, st)
			req := Request{TaskID: task.ID, UserID: 3, RoomID: roomID, CurrentLevel: 1}

			_, err := c.Complete(ctx, req)
			require.NoError(t, err)
			_, err = c.Complete(ctx, req)
			assert.ErrorIs(t, err, ErrAlreadyCompleted)

			life, err := st.UserStats(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, task.XP, life.XP)
			assert.Equal(t, 1, life.TasksCompleted)

			room, err := st.RoomDailyStats(ctx, roomID, "2024-06-03")
			require.NoError(t, err)
			assert.Equal(t, 1, room.TotalTasksCompleted)

			page, err := ledger.New(st).List(ctx, ledger.Query{RoomID: roomID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), page.Total)
		})
	}
}

func TestComplete_EachMemberIndependently(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := createTask(t, st, &models.Task{Title: "Shared chore"})
			c := newCoordinator(t, st)

			_, err := c.Complete(ctx, Request{TaskID: task.ID, UserID: 1, RoomID: roomID, CurrentLevel: 1})
			require.NoError(t, err)
			res, err := c.Complete(ctx, Request{TaskID: task.ID, UserID: 2, RoomID: roomID, CurrentLevel: 1})
			require.NoError(t, err)
			assert.ElementsMatch(t, []uint{1, 2}, res.Task.CompletedBy)

			room, err := st.RoomDailyStats(ctx, roomID, "2024-06-03")
			require.NoError(t, err)
			assert.Equal(t, 2, room.ActiveUserCount)
			assert.Equal(t, float64(task.XP), room.AvgXPPerUser())
		})
	}
}

func TestComplete_NotFound(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := createTask(t, st, &models.Task{Title: "Old task"})
			c := newCoordinator(t, st)

			_, err := c.Complete(ctx, Request{TaskID: task.ID + 100, UserID: 1, RoomID: roomID})
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = c.Complete(ctx, Request{TaskID: task.ID, UserID: 1, RoomID: roomID + 1})
			assert.ErrorIs(t, err, ErrNotFound, "task of another room")

			require.NoError(t, st.Transaction(ctx, func(tx store.Tx) error {
				return tx.SoftDeleteTask(task, clock)
			}))
			_, err = c.Complete(ctx, Request{TaskID: task.ID, UserID: 1, RoomID: roomID})
			assert.ErrorIs(t, err, ErrNotFound, "soft-deleted task")

			_, err = st.UserStats(ctx, 1)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

var errMonthly = errors.New("monthly stats unavailable")

type monthlyFailingStore struct{ store.Store }

func (s monthlyFailingStore) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.Transaction(ctx, func(tx store.Tx) error { return fn(monthlyFailingTx{tx}) })
}

type monthlyFailingTx struct{ store.Tx }

func (monthlyFailingTx) IncrementMonthlyStats(uint, uint, string, int, int) error { return errMonthly }

func TestComplete_AtomicOnRollupFailure(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := createTask(t, st, &models.Task{Title: "Fragile"})

			_, err := newCoordinator(t, monthlyFailingStore{st}).Complete(ctx, Request{TaskID: task.ID, UserID: 5, RoomID: roomID, CurrentLevel: 1})
			require.ErrorIs(t, err, ErrTransactionFailed)
			assert.ErrorIs(t, err, errMonthly)

			_, err = st.UserStats(ctx, 5)
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = st.DailyStats(ctx, 5, roomID, "2024-06-03")
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = st.RoomDailyStats(ctx, roomID, "2024-06-03")
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = st.MonthlyStats(ctx, 5, roomID, "2024-06")
			assert.ErrorIs(t, err, store.ErrNotFound)

			page, err := ledger.New(st).List(ctx, ledger.Query{RoomID: roomID})
			require.NoError(t, err)
			assert.Zero(t, page.Total)

			tasks, err := st.ListTasks(ctx, roomID)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Empty(t, tasks[0].CompletedBy)

			// The same request succeeds once the store recovers.
			_, err = newCoordinator(t, st).Complete(ctx, Request{TaskID: task.ID, UserID: 5, RoomID: roomID, CurrentLevel: 1})
			assert.NoError(t, err)
		})
	}
}

type conflictingStore struct {
	store.Store
	failures int
	calls    int
}

func (s *conflictingStore) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.calls++
	if s.calls <= s.failures {
		return store.ErrConflict
	}
	return s.Store.Transaction(ctx, fn)
}

func TestComplete_RetriesConflicts(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantErr   error
		wantCalls int
	}{
		{"recovers on second attempt", 1, nil, 2},
		{"recovers on last attempt", 2, nil, 3},
		{"gives up", 3, ErrTransactionFailed, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memstore.New()
			task := createTask(t, mem, &models.Task{Title: "Contended"})
			st := &conflictingStore{Store: mem, failures: tt.failures}

			_, err := newCoordinator(t, st).Complete(context.Background(), Request{TaskID: task.ID, UserID: 1, RoomID: roomID})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, store.ErrConflict)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, st.calls)
		})
	}
}

func TestComplete_ConcurrentDuplicates(t *testing.T) {
	st := memstore.New()
	task := createTask(t, st, &models.Task{Title: "Race"})
	c := newCoordinator(t, st)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Complete(context.Background(), Request{TaskID: task.ID, UserID: 9, RoomID: roomID, CurrentLevel: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyCompleted):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 15, conflicts)
	life, err := st.UserStats(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 1, life.TasksCompleted)
}
