package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/paperroom/middleware"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/points"
	"github.com/cppla/paperroom/stats"
	"github.com/cppla/paperroom/store"
	"github.com/cppla/paperroom/utils"
)

// StatsController serves room charts, daily room figures and lifetime user stats.
type StatsController struct {
	reader   store.Reader
	charts   *stats.Charts
	cal      stats.Calendar
	cacheTTL time.Duration
	now      func() time.Time
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(reader store.Reader, cal stats.Calendar, cacheTTL time.Duration) *StatsController {
	return &StatsController{
		reader:   reader,
		charts:   stats.NewCharts(reader, cal),
		cal:      cal,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Chart returns the room's last seven days of XP per member, zero-filled.
func (s *StatsController) Chart(ctx *gin.Context) {
	roomID := middleware.CurrentRoomID(ctx)
	now := s.now()
	key := utils.ChartCacheKey(roomID, s.cal.Day(now))

	var rows []stats.ChartRow
	if utils.CacheGetJSON(ctx.Request.Context(), key, &rows) {
		utils.Success(ctx, gin.H{"days": rows, "cached": true})
		return
	}

	rows, err := s.charts.Weekly(ctx.Request.Context(), roomID, now)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to build chart")
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, rows, s.cacheTTL)
	utils.Success(ctx, gin.H{"days": rows, "cached": false})
}

type roomToday struct {
	Day                 string  `json:"day"`
	TotalXP             int     `json:"total_xp"`
	TotalTasksCompleted int     `json:"total_tasks_completed"`
	ActiveUserCount     int     `json:"active_user_count"`
	AvgXPPerUser        float64 `json:"avg_xp_per_user"`
}

// Today returns the room's figures for the current day together with the caller's own day and month.
func (s *StatsController) Today(ctx *gin.Context) {
	roomID := middleware.CurrentRoomID(ctx)
	userID := middleware.CurrentUserID(ctx)
	now := s.now()
	day := s.cal.Day(now)
	month := s.cal.Month(now)
	rctx := ctx.Request.Context()

	room := roomToday{Day: day}
	rs, err := s.reader.RoomDailyStats(rctx, roomID, day)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load room stats")
		return
	}
	if rs != nil {
		room.TotalXP = rs.TotalXP
		room.TotalTasksCompleted = rs.TotalTasksCompleted
		room.ActiveUserCount = rs.ActiveUserCount
		room.AvgXPPerUser = rs.AvgXPPerUser()
	}

	mine, err := s.reader.DailyStats(rctx, userID, roomID, day)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load daily stats")
		return
	}
	if mine == nil {
		mine = &models.DailyStats{UserID: userID, RoomID: roomID, Day: day}
	}

	monthly, err := s.reader.MonthlyStats(rctx, userID, roomID, month)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load monthly stats")
		return
	}
	if monthly == nil {
		monthly = &models.MonthlyStats{UserID: userID, RoomID: roomID, Month: month, LevelSnapshot: 1}
	}

	utils.Success(ctx, gin.H{"room": room, "mine": mine, "month": monthly})
}

// Me returns the caller's lifetime stats. A user who never completed a task gets zeroed stats at level 1.
func (s *StatsController) Me(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	life, err := s.reader.UserStats(ctx.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		life, err = &models.UserStats{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load stats")
		return
	}
	utils.Success(ctx, gin.H{
		"stats":         life,
		"derived_level": points.LevelForXP(life.XP),
		"xp_to_next":    points.LevelForXP(life.XP)*100 - life.XP,
	})
}
