package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/paperroom/middleware"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/utils"
)

const maxRoomNameLen = 128

// RoomController creates rooms and manages membership.
type RoomController struct {
	db *gorm.DB
}

func NewRoomController(db *gorm.DB) *RoomController {
	return &RoomController{db: db}
}

type roomView struct {
	models.Room
	Members []models.RoomMember `json:"members"`
}

// Create makes a room owned by the caller with a fresh invite code.
func (r *RoomController) Create(ctx *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}
	name := utils.SanitizeText(req.Name)
	if name == "" || len([]rune(name)) > maxRoomNameLen {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, "room name must be 1-128 characters")
		return
	}

	userID := middleware.CurrentUserID(ctx)
	room := models.Room{Name: name, OwnerID: userID, InviteCode: uuid.NewString()}
	err := r.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoomMember{
			RoomID:   room.ID,
			UserID:   userID,
			Role:     models.RoleOwner,
			JoinedAt: time.Now(),
		}).Error
	})
	if err != nil {
		utils.Sugar.Errorf("create room failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to create room")
		return
	}
	utils.Created(ctx, room)
}

// Join adds the caller to the room identified by an invite code. Joining twice is a no-op.
func (r *RoomController) Join(ctx *gin.Context) {
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}

	db := r.db.WithContext(ctx.Request.Context())
	var room models.Room
	if err := db.Where("invite_code = ?", strings.TrimSpace(req.InviteCode)).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, utils.CodeRoomNotFound, "invalid invite code")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load room")
		return
	}

	member := models.RoomMember{
		RoomID:   room.ID,
		UserID:   middleware.CurrentUserID(ctx),
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to join room")
		return
	}
	utils.Success(ctx, room)
}

// Get returns the room with its members.
func (r *RoomController) Get(ctx *gin.Context) {
	db := r.db.WithContext(ctx.Request.Context())
	var view roomView
	if err := db.First(&view.Room, middleware.CurrentRoomID(ctx)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, utils.CodeRoomNotFound, "room not found")
		return
	}
	if err := db.Preload("User").Where("room_id = ?", view.ID).Order("joined_at ASC").Find(&view.Members).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load members")
		return
	}
	// Only the owner needs the invite code to share it.
	if view.OwnerID != middleware.CurrentUserID(ctx) {
		view.InviteCode = ""
	}
	utils.Success(ctx, view)
}
