package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/paperroom/ledger"
	"github.com/cppla/paperroom/middleware"
	"github.com/cppla/paperroom/utils"
)

const maxSummaryDays = 90

// ActivityController exposes the room ledger.
type ActivityController struct {
	ledger *ledger.Ledger
	now    func() time.Time
}

func NewActivityController(l *ledger.Ledger) *ActivityController {
	return &ActivityController{ledger: l, now: time.Now}
}

// List pages the room's ledger. Query: user_id, action, sort, order (asc|desc), page, page_size.
func (a *ActivityController) List(ctx *gin.Context) {
	q := ledger.Query{
		RoomID: middleware.CurrentRoomID(ctx),
		Action: strings.TrimSpace(ctx.Query("action")),
		Sort:   strings.TrimSpace(ctx.Query("sort")),
		Desc:   !strings.EqualFold(ctx.DefaultQuery("order", "desc"), "asc"),
	}

	var ok bool
	if q.UserID, ok = queryUint(ctx, "user_id"); !ok {
		return
	}
	if q.Page, ok = queryInt(ctx, "page"); !ok {
		return
	}
	if q.PageSize, ok = queryInt(ctx, "page_size"); !ok {
		return
	}

	page, err := a.ledger.List(ctx.Request.Context(), q)
	if errors.Is(err, ledger.ErrInvalidQuery) {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, err.Error())
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to list activity")
		return
	}
	utils.Success(ctx, page)
}

// Summary aggregates the trailing ?days=N (default 7) by action.
func (a *ActivityController) Summary(ctx *gin.Context) {
	days, err := strconv.Atoi(ctx.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > maxSummaryDays {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, "days must be between 1 and 90")
		return
	}

	out, err := a.ledger.Summary(ctx.Request.Context(), middleware.CurrentRoomID(ctx), time.Duration(days)*24*time.Hour, a.now())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to summarize activity")
		return
	}
	utils.Success(ctx, gin.H{"days": days, "actions": out})
}

func queryUint(ctx *gin.Context, key string) (uint, bool) {
	v := strings.TrimSpace(ctx.Query(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, "invalid "+key)
		return 0, false
	}
	return uint(n), true
}

func queryInt(ctx *gin.Context, key string) (int, bool) {
	v := strings.TrimSpace(ctx.Query(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, "invalid "+key)
		return 0, false
	}
	return n, true
}
