// Package model defines database models
package model

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Verified     bool      `gorm:"default:false" json:"verified"`
	CreatedAt    time.Time `json:"created_at"`

	Sessions   []Session       `gorm:"foreignKey:UserID" json:"-"`
	Identities []OAuthIdentity `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
