package repository

import (
	"bitwise74/career-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

// Create inserts u. A duplicate email returns ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createUser(tx, u)
	})
}

func createUser(tx *gorm.DB, u *model.User) error {
	var taken bool

	err := tx.Model(&model.User{}).
		Select("count(*) > 0").
		Where("email = ?", u.Email).
		Find(&taken).
		Error
	if err != nil {
		return err
	}

	if taken {
		return ErrEmailTaken
	}

	if err := tx.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}

		return err
	}

	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User

	err := r.DB.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &u, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &u, err
}

func (r *UserRepository) MarkVerified(ctx context.Context, email string) error {
	res := r.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Update("verified", true)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// FindByIdentity returns the user linked to an external account
func (r *UserRepository) FindByIdentity(ctx context.Context, provider, providerID string) (*model.User, error) {
	var u model.User

	err := r.DB.WithContext(ctx).
		Joins("JOIN user_oauth ON user_oauth.user_id = users.id").
		Where("user_oauth.provider = ? AND user_oauth.provider_id = ?", provider, providerID).
		First(&u).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	return &u, err
}

// LinkIdentity attaches an external account to a user. A user has at most
// one account per provider, linking again replaces the provider id.
func (r *UserRepository) LinkIdentity(ctx context.Context, userID uint, provider, providerID string) error {
	return linkIdentity(r.DB.WithContext(ctx), userID, provider, providerID)
}

func linkIdentity(tx *gorm.DB, userID uint, provider, providerID string) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]any{
			"provider_id": providerID,
			"updated_at":  time.Now(),
		}),
	}).Create(&model.OAuthIdentity{
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
	}).Error
}

// CreateWithSession inserts u and opens its session for ip in one
// transaction, so a failed session leaves no account behind
func (r *UserRepository) CreateWithSession(ctx context.Context, u *model.User, ip string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, u); err != nil {
			return err
		}

		if err := openSession(tx, u.ID, ip); err != nil {
			return fmt.Errorf("failed to open session, %w", err)
		}

		return nil
	})
}

// CreateWithIdentity inserts u and links the external account in one
// transaction
func (r *UserRepository) CreateWithIdentity(ctx context.Context, u *model.User, provider, providerID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, u); err != nil {
			return err
		}

		return linkIdentity(tx, u.ID, provider, providerID)
	})
}
