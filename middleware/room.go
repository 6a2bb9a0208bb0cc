package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/utils"
)

const (
	// ContextRoomIDKey holds the validated :roomId path parameter.
	ContextRoomIDKey = "room_id"
	// ContextRoomRoleKey holds the caller's role inside the room.
	ContextRoomRoleKey = "room_role"
)

// RoomMember resolves :roomId and rejects callers that are not members of that room.
// It must run after AuthRequired.
func RoomMember(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		roomID, err := strconv.ParseUint(ctx.Param("roomId"), 10, 64)
		if err != nil || roomID == 0 {
			utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid room id")
			ctx.Abort()
			return
		}

		var room models.Room
		if err := db.WithContext(ctx.Request.Context()).Select("id").First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(ctx, http.StatusNotFound, utils.CodeRoomNotFound, "room not found")
			} else {
				utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load room")
			}
			ctx.Abort()
			return
		}

		var member models.RoomMember
		err = db.WithContext(ctx.Request.Context()).
			Where("room_id = ? AND user_id = ?", roomID, CurrentUserID(ctx)).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusForbidden, utils.CodeNotMember, "not a member of this room")
			ctx.Abort()
			return
		}
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to load membership")
			ctx.Abort()
			return
		}

		ctx.Set(ContextRoomIDKey, uint(roomID))
		ctx.Set(ContextRoomRoleKey, member.Role)
		ctx.Next()
	}
}

// CurrentRoomID returns the room resolved by RoomMember.
func CurrentRoomID(ctx *gin.Context) uint {
	return ctx.GetUint(ContextRoomIDKey)
}
