// Package memstore is an in-process store.Store. Transactions run against a
// private copy of the state that replaces the shared state only on success,
// and are serialized by a single lock.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store"
)

type dailyKey struct {
	userID, roomID uint
	day            string
}

type roomDayKey struct {
	roomID uint
	day    string
}

type monthKey struct {
	userID, roomID uint
	month          string
}

type state struct {
	nextID      uint
	users       map[uint]string
	members     map[uint][]uint
	tasks       map[uint]models.Task
	completions map[uint][]uint
	userStats   map[uint]models.UserStats
	daily       map[dailyKey]models.DailyStats
	roomDaily   map[roomDayKey]models.RoomDailyStats
	roomActive  map[roomDayKey]map[uint]bool
	monthly     map[monthKey]models.MonthlyStats
	activities  []models.Activity
}

func newState() *state {
	return &state{
		users:       map[uint]string{},
		members:     map[uint][]uint{},
		tasks:       map[uint]models.Task{},
		completions: map[uint][]uint{},
		userStats:   map[uint]models.UserStats{},
		daily:       map[dailyKey]models.DailyStats{},
		roomDaily:   map[roomDayKey]models.RoomDailyStats{},
		roomActive:  map[roomDayKey]map[uint]bool{},
		monthly:     map[monthKey]models.MonthlyStats{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.members {
		c.members[k] = append([]uint(nil), v...)
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.completions {
		c.completions[k] = append([]uint(nil), v...)
	}
	for k, v := range s.userStats {
		c.userStats[k] = v
	}
	for k, v := range s.daily {
		c.daily[k] = v
	}
	for k, v := range s.roomDaily {
		c.roomDaily[k] = v
	}
	for k, v := range s.roomActive {
		set := make(map[uint]bool, len(v))
		for id := range v {
			set[id] = true
		}
		c.roomActive[k] = set
	}
	for k, v := range s.monthly {
		c.monthly[k] = v
	}
	c.activities = append([]models.Activity(nil), s.activities...)
	return c
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

// Store is the in-memory store.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// AddUser registers a username so charts can resolve it.
func (s *Store) AddUser(userID uint, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[userID] = username
}

// AddMember puts a user into a room.
func (s *Store) AddMember(roomID, userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.st.members[roomID] {
		if id == userID {
			return
		}
	}
	s.st.members[roomID] = append(s.st.members[roomID], userID)
}

// Transaction runs fn against a copy of the state and publishes it only when fn succeeds.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	if err := fn(&txn{st: working}); err != nil {
		return err
	}
	s.st = working
	return nil
}

type txn struct {
	st *state
}

func (x *txn) Task(taskID, roomID uint) (*models.Task, error) {
	t, ok := x.st.tasks[taskID]
	if !ok || t.RoomID != roomID || t.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	t.CompletedBy = append([]uint(nil), x.st.completions[taskID]...)
	return &t, nil
}

func (x *txn) CreateTask(t *models.Task) error {
	t.ID = x.st.id()
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	stored := *t
	stored.CompletedBy = nil
	x.st.tasks[t.ID] = stored
	return nil
}

func (x *txn) UpdateTask(t *models.Task, fields ...string) error {
	cur, ok := x.st.tasks[t.ID]
	if !ok || cur.DeletedAt.Valid {
		return store.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	stored := *t
	stored.CompletedBy = nil
	x.st.tasks[t.ID] = stored
	return nil
}

func (x *txn) SoftDeleteTask(t *models.Task, at time.Time) error {
	cur, ok := x.st.tasks[t.ID]
	if !ok || cur.DeletedAt.Valid {
		return store.ErrNotFound
	}
	cur.DeletedAt = gorm.DeletedAt{Time: at, Valid: true}
	x.st.tasks[t.ID] = cur
	t.DeletedAt = cur.DeletedAt
	return nil
}

func (x *txn) AddCompletion(taskID, userID uint, at time.Time) (bool, error) {
	for _, id := range x.st.completions[taskID] {
		if id == userID {
			return false, nil
		}
	}
	x.st.completions[taskID] = append(x.st.completions[taskID], userID)
	return true, nil
}

func (x *txn) CompletedBy(taskID uint) ([]uint, error) {
	return append([]uint(nil), x.st.completions[taskID]...), nil
}

func (x *txn) UserStatsForUpdate(userID uint) (*models.UserStats, error) {
	s, ok := x.st.userStats[userID]
	if !ok {
		now := time.Now()
		s = models.UserStats{ID: x.st.id(), UserID: userID, Level: 1, CreatedAt: now, UpdatedAt: now}
		x.st.userStats[userID] = s
	}
	return &s, nil
}

func (x *txn) SaveUserStats(s *models.UserStats) error {
	s.UpdatedAt = time.Now()
	x.st.userStats[s.UserID] = *s
	return nil
}

func (x *txn) IncrementDailyStats(userID, roomID uint, day string, xp int) error {
	k := dailyKey{userID, roomID, day}
	d, ok := x.st.daily[k]
	if !ok {
		d = models.DailyStats{ID: x.st.id(), UserID: userID, RoomID: roomID, Day: day, CreatedAt: time.Now()}
	}
	d.XP += xp
	d.TasksCompleted++
	d.UpdatedAt = time.Now()
	x.st.daily[k] = d
	return nil
}

func (x *txn) IncrementRoomDailyStats(roomID uint, day string, xp int) error {
	k := roomDayKey{roomID, day}
	r, ok := x.st.roomDaily[k]
	if !ok {
		r = models.RoomDailyStats{ID: x.st.id(), RoomID: roomID, Day: day, CreatedAt: time.Now()}
	}
	r.TotalXP += xp
	r.TotalTasksCompleted++
	r.UpdatedAt = time.Now()
	x.st.roomDaily[k] = r
	return nil
}

func (x *txn) AddRoomDailyActiveUser(roomID uint, day string, userID uint) (bool, error) {
	k := roomDayKey{roomID, day}
	set, ok := x.st.roomActive[k]
	if !ok {
		set = map[uint]bool{}
		x.st.roomActive[k] = set
	}
	if set[userID] {
		return false, nil
	}
	set[userID] = true
	return true, nil
}

func (x *txn) IncrementRoomActiveUsers(roomID uint, day string) error {
	k := roomDayKey{roomID, day}
	r, ok := x.st.roomDaily[k]
	if !ok {
		return store.ErrNotFound
	}
	r.ActiveUserCount++
	x.st.roomDaily[k] = r
	return nil
}

func (x *txn) IncrementMonthlyStats(userID, roomID uint, month string, xp, level int) error {
	k := monthKey{userID, roomID, month}
	m, ok := x.st.monthly[k]
	if !ok {
		m = models.MonthlyStats{ID: x.st.id(), UserID: userID, RoomID: roomID, Month: month, CreatedAt: time.Now()}
	}
	m.XP += xp
	m.TasksCompleted++
	m.LevelSnapshot = level
	m.UpdatedAt = time.Now()
	x.st.monthly[k] = m
	return nil
}

func (x *txn) AppendActivity(a *models.Activity) error {
	a.ID = x.st.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	x.st.activities = append(x.st.activities, *a)
	return nil
}

func (s *Store) ListTasks(ctx context.Context, roomID uint) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0)
	for _, t := range s.st.tasks {
		if t.RoomID != roomID || t.DeletedAt.Valid {
			continue
		}
		t.CompletedBy = append([]uint(nil), s.st.completions[t.ID]...)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UserStats(ctx context.Context, userID uint) (*models.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.userStats[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) DailyStats(ctx context.Context, userID, roomID uint, day string) (*models.DailyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.daily[dailyKey{userID, roomID, day}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) RoomDailyStats(ctx context.Context, roomID uint, day string) (*models.RoomDailyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.roomDaily[roomDayKey{roomID, day}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) MonthlyStats(ctx context.Context, userID, roomID uint, month string) (*models.MonthlyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.monthly[monthKey{userID, roomID, month}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) RoomDailyXP(ctx context.Context, roomID uint, fromDay, toDay string) ([]store.DailyXP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []store.DailyXP
	for k, d := range s.st.daily {
		if k.roomID != roomID || k.day < fromDay || k.day > toDay {
			continue
		}
		rows = append(rows, store.DailyXP{Day: k.day, UserID: k.userID, Username: s.st.users[k.userID], XP: d.XP})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day < rows[j].Day
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows, nil
}

func (s *Store) RoomMembers(ctx context.Context, roomID uint) ([]store.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Member
	for _, id := range s.st.members[roomID] {
		out = append(out, store.Member{UserID: id, Username: s.st.users[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) ListActivities(ctx context.Context, q store.ActivityQuery) ([]models.Activity, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Activity
	for _, a := range s.st.activities {
		if q.RoomID != 0 && a.RoomID != q.RoomID {
			continue
		}
		if q.UserID != 0 && a.UserID != q.UserID {
			continue
		}
		if q.Action != "" && a.Action != q.Action {
			continue
		}
		matched = append(matched, a)
	}
	total := int64(len(matched))

	less := activityLess(q.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if q.Desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	if q.Offset >= len(matched) {
		return []models.Activity{}, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func activityLess(field string) func(a, b models.Activity) bool {
	byID := func(a, b models.Activity) bool { return a.ID < b.ID }
	switch field {
	case "xp":
		return func(a, b models.Activity) bool {
			if a.XP != b.XP {
				return a.XP < b.XP
			}
			return byID(a, b)
		}
	case "action":
		return func(a, b models.Activity) bool {
			if a.Action != b.Action {
				return a.Action < b.Action
			}
			return byID(a, b)
		}
	case "user_id":
		return func(a, b models.Activity) bool {
			if a.UserID != b.UserID {
				return a.UserID < b.UserID
			}
			return byID(a, b)
		}
	default:
		return func(a, b models.Activity) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return byID(a, b)
		}
	}
}

func (s *Store) SummarizeActivities(ctx context.Context, roomID uint, since, until time.Time) ([]store.ActionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byAction := map[models.ActivityAction]*store.ActionSummary{}
	for _, a := range s.st.activities {
		if a.RoomID != roomID || a.CreatedAt.Before(since) || a.CreatedAt.After(until) {
			continue
		}
		sum, ok := byAction[a.Action]
		if !ok {
			sum = &store.ActionSummary{Action: a.Action}
			byAction[a.Action] = sum
		}
		sum.Count++
		sum.TotalXP += int64(a.XP)
	}

	out := make([]store.ActionSummary, 0, len(byAction))
	for _, sum := range byAction {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out, nil
}
