package repository

import (
	"bitwise74/career-api/internal/model"
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizRepository struct {
	DB *gorm.DB
}

// SaveProgress writes p over whatever progress the user had
func (r *QuizRepository) SaveProgress(ctx context.Context, p *model.QuizProgress) error {
	if p.Answers == nil {
		p.Answers = datatypes.JSONMap{}
	}

	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(p).Error
}

// GetProgress returns nil when the user has no saved progress
func (r *QuizRepository) GetProgress(ctx context.Context, userID uint) (*model.QuizProgress, error) {
	var p model.QuizProgress

	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &p, nil
}

func (r *QuizRepository) ClearProgress(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.QuizProgress{}).
		Error
}

// SaveResult appends a finished quiz to the user's history
func (r *QuizRepository) SaveResult(ctx context.Context, userID uint, answers, results model.Scores) (*model.QuizResult, error) {
	res := &model.QuizResult{
		UserID:  userID,
		Answers: answers,
		Results: datatypes.NewJSONType(results),
	}

	if err := r.DB.WithContext(ctx).Create(res).Error; err != nil {
		return nil, err
	}

	return res, nil
}

// FinishQuiz stores the result and drops the in-flight progress together
func (r *QuizRepository) FinishQuiz(ctx context.Context, userID uint, scores model.Scores) (*model.QuizResult, error) {
	var res *model.QuizResult

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txr := &QuizRepository{DB: tx}

		var err error
		res, err = txr.SaveResult(ctx, userID, scores, scores)
		if err != nil {
			return err
		}

		return txr.ClearProgress(ctx, userID)
	})

	return res, err
}

// Latest returns nil when the user never finished a quiz
func (r *QuizRepository) Latest(ctx context.Context, userID uint) (*model.QuizResult, error) {
	var res model.QuizResult

	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		First(&res).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &res, nil
}

// History lists finished quizzes newest first
func (r *QuizRepository) History(ctx context.Context, userID uint) ([]model.QuizResult, error) {
	results := []model.QuizResult{}

	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		Find(&results).
		Error

	return results, err
}
