package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatThread struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Messages []ChatMessage `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatThread) TableName() string {
	return "user_chats"
}

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ChatID    uint      `gorm:"not null;index" json:"-"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// ActiveChat points at the thread new messages go to. ChatID is nil when
// the user has no active thread.
type ActiveChat struct {
	UserID uint  `gorm:"primaryKey;autoIncrement:false"`
	ChatID *uint `gorm:"column:active_chat_id"`
}

func (ActiveChat) TableName() string {
	return "user_active_chats"
}
