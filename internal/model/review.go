package model

import "time"

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `json:"comment"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReviewLikes []ReviewLike `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"-"`
}

type ReviewLike struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	ReviewID  uint `gorm:"not null;uniqueIndex:idx_review_like"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_review_like"`
	CreatedAt time.Time
}
