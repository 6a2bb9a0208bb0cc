// Package storetest opens throwaway SQLite databases for tests.
package storetest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/store/gormstore"
)

// OpenSQLite returns a migrated in-memory database private to t.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gormstore.Migrate(db))
	return db
}

// SeedUser inserts a user with the given name.
func SeedUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedRoom inserts a room owned by owner and adds each of members to it.
func SeedRoom(t testing.TB, db *gorm.DB, owner *models.User, members ...*models.User) *models.Room {
	t.Helper()
	r := &models.Room{Name: "room-" + owner.Username, OwnerID: owner.ID, InviteCode: uuid.NewString()}
	require.NoError(t, db.Create(r).Error)

	now := time.Now()
	require.NoError(t, db.Create(&models.RoomMember{RoomID: r.ID, UserID: owner.ID, Role: models.RoleOwner, JoinedAt: now}).Error)
	for _, m := range members {
		require.NoError(t, db.Create(&models.RoomMember{RoomID: r.ID, UserID: m.ID, Role: models.RoleMember, JoinedAt: now}).Error)
	}
	return r
}
