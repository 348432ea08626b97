package repository

import (
	"bitwise74/career-api/internal/model"
	"context"
	"errors"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sortOrders = map[string]string{
	"newest":  "reviews.created_at DESC, reviews.id DESC",
	"oldest":  "reviews.created_at ASC, reviews.id ASC",
	"highest": "reviews.rating DESC, reviews.created_at DESC",
	"lowest":  "reviews.rating ASC, reviews.created_at DESC",
	"popular": "reviews.likes DESC, reviews.created_at DESC",
}

// SortOptions lists the accepted values for the list sort parameter
var SortOptions = []string{"newest", "oldest", "highest", "lowest", "popular"}

// ReviewEntry is a review as shown on the board
type ReviewEntry struct {
	model.Review
	Username     string `json:"username"`
	UserHasLiked bool   `json:"user_has_liked"`
}

type ReviewStats struct {
	AverageRating float64 `json:"average_rating"`
	ReviewsCount  int64   `json:"reviews_count"`
}

type ReviewRepository struct {
	DB *gorm.DB
}

// Create stores the user's review. A user gets one review, an existing one
// is never overwritten.
func (r *ReviewRepository) Create(ctx context.Context, userID uint, rating int, comment string) (*model.Review, error) {
	review := &model.Review{
		UserID:  userID,
		Rating:  rating,
		Comment: comment,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists bool

		err := tx.Model(&model.Review{}).
			Select("count(*) > 0").
			Where("user_id = ?", userID).
			Find(&exists).
			Error
		if err != nil {
			return err
		}

		if exists {
			return ErrReviewExists
		}

		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrReviewExists
			}

			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func (r *ReviewRepository) Update(ctx context.Context, userID uint, rating int, comment string) (*model.Review, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.Review{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"rating":  rating,
			"comment": comment,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		return nil, ErrReviewNotFound
	}

	return r.ByUser(ctx, userID)
}

// Delete removes the user's review together with its likes. It returns
// false when the user had no review.
func (r *ReviewRepository) Delete(ctx context.Context, userID uint) (bool, error) {
	deleted := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review model.Review

		err := tx.Where("user_id = ?", userID).First(&review).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}

			return err
		}

		if err := tx.Where("review_id = ?", review.ID).Delete(&model.ReviewLike{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&review).Error; err != nil {
			return err
		}

		deleted = true
		return nil
	})

	return deleted, err
}

// ByUser returns nil when the user has no review
func (r *ReviewRepository) ByUser(ctx context.Context, userID uint) (*model.Review, error) {
	var review model.Review

	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &review, nil
}

// Like records that userID likes reviewID. Liking twice returns false and
// leaves the counter alone.
func (r *ReviewRepository) Like(ctx context.Context, reviewID, userID uint) (bool, error) {
	liked := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reviewExists(tx, reviewID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.ReviewLike{
			ReviewID: reviewID,
			UserID:   userID,
		})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return nil
		}

		err := tx.Model(&model.Review{}).
			Where("id = ?", reviewID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).
			Error
		if err != nil {
			return err
		}

		liked = true
		return nil
	})

	return liked, err
}

// Unlike removes a like. Returns false if there was nothing to remove.
func (r *ReviewRepository) Unlike(ctx context.Context, reviewID, userID uint) (bool, error) {
	unliked := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reviewExists(tx, reviewID); err != nil {
			return err
		}

		res := tx.
			Where("review_id = ? AND user_id = ?", reviewID, userID).
			Delete(&model.ReviewLike{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return nil
		}

		err := tx.Model(&model.Review{}).
			Where("id = ? AND likes > 0", reviewID).
			UpdateColumn("likes", gorm.Expr("likes - 1")).
			Error
		if err != nil {
			return err
		}

		unliked = true
		return nil
	})

	return unliked, err
}

// List returns every review in the requested order, annotated for viewerID.
// Unknown sort values fall back to newest.
func (r *ReviewRepository) List(ctx context.Context, sort string, viewerID uint) ([]ReviewEntry, error) {
	order, ok := sortOrders[sort]
	if !ok {
		order = sortOrders["newest"]
	}

	entries := []ReviewEntry{}

	err := r.DB.WithContext(ctx).
		Model(&model.Review{}).
		Select(`reviews.*, users.username AS username,
			EXISTS (SELECT 1 FROM review_likes WHERE review_likes.review_id = reviews.id AND review_likes.user_id = ?) AS user_has_liked`, viewerID).
		Joins("JOIN users ON users.id = reviews.user_id").
		Order(order).
		Scan(&entries).
		Error

	return entries, err
}

// Stats returns the average rating rounded to one decimal and the count
func (r *ReviewRepository) Stats(ctx context.Context) (ReviewStats, error) {
	var row struct {
		Avg   float64
		Count int64
	}

	err := r.DB.WithContext(ctx).
		Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Scan(&row).
		Error
	if err != nil {
		return ReviewStats{}, err
	}

	return ReviewStats{
		AverageRating: math.Round(row.Avg*10) / 10,
		ReviewsCount:  row.Count,
	}, nil
}

func reviewExists(tx *gorm.DB, reviewID uint) error {
	var exists bool

	err := tx.Model(&model.Review{}).
		Select("count(*) > 0").
		Where("id = ?", reviewID).
		Find(&exists).
		Error
	if err != nil {
		return err
	}

	if !exists {
		return ErrReviewNotFound
	}

	return nil
}
