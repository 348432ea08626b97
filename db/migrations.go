package db

import (
	"bitwise74/career-api/internal/model"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type migration struct {
	name string
	fn   func(tx *gorm.DB) error
}

var migrations = []migration{
	{"resync_review_likes", resyncReviewLikes},
}

// runOnce applies fn inside a transaction unless a Migration row with the
// same name already exists
func runOnce(db *gorm.DB, name string, fn func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var m model.Migration

		err := tx.Where("name = ?", name).First(&m).Error
		if err == nil {
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := fn(tx); err != nil {
			return err
		}

		zap.L().Info("Applied migration", zap.String("name", name))
		return tx.Create(&model.Migration{Name: name}).Error
	})
}

// resyncReviewLikes recomputes every review's like counter from the
// review_likes table
func resyncReviewLikes(tx *gorm.DB) error {
	return tx.Exec(`UPDATE reviews SET likes = (
		SELECT COUNT(*) FROM review_likes WHERE review_likes.review_id = reviews.id
	)`).Error
}
