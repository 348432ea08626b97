package db

import (
	"bitwise74/career-api/internal/model"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func TestMigrateResyncsLikesOnce(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, db.AutoMigrate(Models...))

	u := model.User{Username: "a", Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)

	r := model.Review{UserID: u.ID, Rating: 5, Likes: 42}
	require.NoError(t, db.Create(&r).Error)
	require.NoError(t, db.Create(&model.ReviewLike{ReviewID: r.ID, UserID: u.ID}).Error)

	require.NoError(t, Migrate(db))

	var got model.Review
	require.NoError(t, db.First(&got, r.ID).Error)
	assert.Equal(t, 1, got.Likes)

	var count int64
	require.NoError(t, db.Model(&model.Migration{}).Where("name = ?", "resync_review_likes").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Drifted counters are left alone once the migration is recorded
	require.NoError(t, db.Model(&model.Review{}).Where("id = ?", r.ID).Update("likes", 7).Error)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.First(&got, r.ID).Error)
	assert.Equal(t, 7, got.Likes)
}
