// Package testutil holds helpers shared by package tests
package testutil

import (
	"bitwise74/career-api/db"
	"bitwise74/career-api/internal/model"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an isolated in-memory SQLite database with the full
// schema migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := conn.DB()
	require.NoError(t, err)

	// One connection keeps the shared memory database alive and
	// serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(conn), "failed to migrate test database")
	return conn
}

// CreateUser inserts a verified user with a throwaway password hash
func CreateUser(t *testing.T, conn *gorm.DB, username, email string) *model.User {
	t.Helper()

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		Verified:     true,
	}
	require.NoError(t, conn.Create(u).Error)

	return u
}
