package models

import "time"

// Room is a shared workspace grouping users and tasks.
type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	OwnerID    uint      `gorm:"index;not null" json:"owner_id"`
	InviteCode string    `gorm:"size:36;not null;uniqueIndex" json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// RoomMember links a user to a room.
type RoomMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   uint      `gorm:"not null;uniqueIndex:idx_room_member" json:"room_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_room_member;index" json:"user_id"`
	Role     string    `gorm:"size:16;not null;default:'member'" json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
}
