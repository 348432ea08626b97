package model

import "time"

// Session binds a user to the network address they last logged in from.
// An address holds at most one session and so does a user.
type Session struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"not null;index"`
	IPAddress string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}
