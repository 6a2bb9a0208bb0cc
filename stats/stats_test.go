package stats

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
	"github.com/cppla/paperroom/store/memstore"
)

func at(day int, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}

func TestCalendar_Buckets(t *testing.T) {
	cal := UTC()
	ts := time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-31", cal.Day(ts))
	assert.Equal(t, "2024-01", cal.Month(ts))

	tokyo, err := NewCalendar("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", tokyo.Day(ts))
	assert.Equal(t, "2024-02", tokyo.Month(ts))

	_, err = NewCalendar("Not/AZone")
	assert.Error(t, err)
}

func TestCalendar_DaysBetween(t *testing.T) {
	cal := UTC()
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", at(1, 0), at(1, 23), 0},
		{"next day across midnight", at(1, 23), at(2, 0), 1},
		{"two days", at(1, 12), at(3, 1), 2},
		{"earlier", at(3, 12), at(1, 12), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.DaysBetween(tt.a, tt.b))
		})
	}
}

func TestCalendar_LastDays(t *testing.T) {
	days := UTC().LastDays(at(3, 10), 7)
	assert.Equal(t, []string{
		"2024-02-26", "2024-02-27", "2024-02-28", "2024-02-29",
		"2024-03-01", "2024-03-02", "2024-03-03",
	}, days)
}

func TestUpdateStreak(t *testing.T) {
	cal := UTC()

	t.Run("first completion starts at one", func(t *testing.T) {
		s := &models.UserStats{}
		assert.True(t, UpdateStreak(s, at(1, 9), cal))
		assert.Equal(t, 1, s.CurrentStreak)
		assert.Equal(t, 1, s.LongestStreak)
		assert.Equal(t, "2024-03-01", s.StreakUpdate)
	})

	t.Run("consecutive day continues", func(t *testing.T) {
		s := &models.UserStats{}
		UpdateStreak(s, at(1, 9), cal)
		assert.True(t, UpdateStreak(s, at(2, 8), cal))
		assert.Equal(t, 2, s.CurrentStreak)
		assert.Equal(t, 2, s.LongestStreak)
	})

	t.Run("gap resets", func(t *testing.T) {
		s := &models.UserStats{}
		UpdateStreak(s, at(1, 9), cal)
		assert.True(t, UpdateStreak(s, at(3, 9), cal))
		assert.Equal(t, 1, s.CurrentStreak)
		assert.Equal(t, 1, s.LongestStreak)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		s := &models.UserStats{}
		UpdateStreak(s, at(1, 9), cal)
		assert.False(t, UpdateStreak(s, at(1, 22), cal))
		assert.Equal(t, 1, s.CurrentStreak)
		assert.Equal(t, at(1, 9), *s.LastTaskCompletionDate)
	})

	t.Run("earlier day is a no-op", func(t *testing.T) {
		s := &models.UserStats{}
		UpdateStreak(s, at(5, 9), cal)
		assert.False(t, UpdateStreak(s, at(4, 9), cal))
		assert.Equal(t, 1, s.CurrentStreak)
		assert.Equal(t, "2024-03-05", s.StreakUpdate)
	})
}

func TestUpdateStreak_LongestNeverBelowCurrent(t *testing.T) {
	cal := UTC()
	s := &models.UserStats{}
	days := []int{1, 2, 3, 3, 5, 6, 7, 8, 10, 11}
	for _, d := range days {
		UpdateStreak(s, at(d, 12), cal)
		assert.GreaterOrEqual(t, s.LongestStreak, s.CurrentStreak, "day %d", d)
	}
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 4, s.LongestStreak)
}

func apply(t *testing.T, st store.Store, r *Rollup, ev Event) *models.UserStats {
	t.Helper()
	var out *models.UserStats
	err := st.Transaction(context.Background(), func(tx store.Tx) error {
		var err error
		out, err = r.Apply(tx, ev)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestRollup_RoomAverage(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	r := NewRollup(UTC())
	now := at(10, 9)

	apply(t, st, r, Event{UserID: 1, RoomID: 7, XP: 10, Level: 1, At: now})
	apply(t, st, r, Event{UserID: 2, RoomID: 7, XP: 20, Level: 1, At: now.Add(time.Hour)})

	room, err := st.RoomDailyStats(ctx, 7, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 30, room.TotalXP)
	assert.Equal(t, 2, room.ActiveUserCount)
	assert.Equal(t, 15.0, room.AvgXPPerUser())

	apply(t, st, r, Event{UserID: 1, RoomID: 7, XP: 5, Level: 1, At: now.Add(2 * time.Hour)})

	room, err = st.RoomDailyStats(ctx, 7, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, 35, room.TotalXP)
	assert.Equal(t, 3, room.TotalTasksCompleted)
	assert.Equal(t, 2, room.ActiveUserCount)
	assert.Equal(t, 17.5, room.AvgXPPerUser())
}

func TestRollup_AdvancesEveryAggregate(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	r := NewRollup(UTC())

	apply(t, st, r, Event{UserID: 1, RoomID: 3, XP: 12, Level: 1, At: at(1, 9)})
	life := apply(t, st, r, Event{UserID: 1, RoomID: 3, XP: 30, Level: 2, At: at(2, 9)})

	assert.Equal(t, 42, life.XP)
	assert.Equal(t, 2, life.TasksCompleted)
	assert.Equal(t, 2, life.Level)
	assert.Equal(t, 2, life.CurrentStreak)

	daily, err := st.DailyStats(ctx, 1, 3, "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, 30, daily.XP)
	assert.Equal(t, 1, daily.TasksCompleted)

	monthly, err := st.MonthlyStats(ctx, 1, 3, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 42, monthly.XP)
	assert.Equal(t, 2, monthly.TasksCompleted)
	assert.Equal(t, 2, monthly.LevelSnapshot)
}

func TestCharts_Weekly_ZeroFill(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.AddUser(1, "ada")
	st.AddUser(2, "bob")
	st.AddUser(3, "cyd")
	st.AddMember(9, 1)
	st.AddMember(9, 2)
	r := NewRollup(UTC())

	// ada on four of the seven days, bob never, cyd (no longer a member) once.
	for _, d := range []int{4, 5, 7, 10} {
		apply(t, st, r, Event{UserID: 1, RoomID: 9, XP: 10, Level: 1, At: at(d, 9)})
	}
	apply(t, st, r, Event{UserID: 3, RoomID: 9, XP: 7, Level: 1, At: at(7, 11)})
	// Outside the window.
	apply(t, st, r, Event{UserID: 1, RoomID: 9, XP: 99, Level: 1, At: at(3, 9)})

	rows, err := NewCharts(st, UTC()).Weekly(ctx, 9, at(10, 18))
	require.NoError(t, err)
	require.Len(t, rows, ChartDays)

	assert.Equal(t, "2024-03-04", rows[0].Date)
	assert.Equal(t, "2024-03-10", rows[6].Date)
	for _, row := range rows {
		assert.Len(t, row.XP, 3, row.Date)
		assert.Contains(t, row.XP, "bob")
	}
	assert.Equal(t, map[string]int{"ada": 0, "bob": 0, "cyd": 0}, rows[2].XP)
	assert.Equal(t, 0, rows[2].Total)
	assert.Equal(t, map[string]int{"ada": 10, "bob": 0, "cyd": 7}, rows[3].XP)
	assert.Equal(t, 17, rows[3].Total)
}

func TestCharts_Weekly_EmptyRoom(t *testing.T) {
	rows, err := NewCharts(memstore.New(), UTC()).Weekly(context.Background(), 1, at(10, 0))
	require.NoError(t, err)
	require.Len(t, rows, ChartDays)
	for _, row := range rows {
		assert.Empty(t, row.XP)
		assert.Zero(t, row.Total)
	}
}
