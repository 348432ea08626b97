package model

import "time"

// ResendRequest throttles how often a verification code can be mailed
// to the same address.
type ResendRequest struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	Email      string `gorm:"uniqueIndex;not null"`
	LastResend time.Time
	Cooldown   time.Time
	Count      int
	Blocked    bool // Too many resends in one day block the address until the window resets
}
