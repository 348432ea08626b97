package repository

import (
	"bitwise74/career-api/internal/model"
	"context"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

// Create opens a session for userID at ip. Any session held by the same
// address or by the same user is closed first, so each address and each
// user end up with exactly one row.
func (r *SessionRepository) Create(ctx context.Context, userID uint, ip string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return openSession(tx, userID, ip)
	})
}

func openSession(tx *gorm.DB, userID uint, ip string) error {
	err := tx.
		Where("ip_address = ? OR user_id = ?", ip, userID).
		Delete(&model.Session{}).
		Error
	if err != nil {
		return err
	}

	return tx.Create(&model.Session{
		UserID:    userID,
		IPAddress: ip,
	}).Error
}

// VerifyAccess reports whether userID holds the session for ip
func (r *SessionRepository) VerifyAccess(ctx context.Context, userID uint, ip string) (bool, error) {
	var found bool

	err := r.DB.WithContext(ctx).
		Model(&model.Session{}).
		Select("count(*) > 0").
		Where("user_id = ? AND ip_address = ?", userID, ip).
		Find(&found).
		Error

	return found, err
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Session{}).
		Error
}
