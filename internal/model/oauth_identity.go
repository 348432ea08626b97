package model

import "time"

type OAuthIdentity struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_oauth_user_provider"`
	Provider   string `gorm:"not null;uniqueIndex:idx_oauth_user_provider;index:idx_oauth_provider_id"`
	ProviderID string `gorm:"not null;index:idx_oauth_provider_id"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (OAuthIdentity) TableName() string {
	return "user_oauth"
}
