package repository

import (
	"bitwise74/career-api/internal/model"
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultChatTitle = "New chat"

type ChatRepository struct {
	DB *gorm.DB
}

// Create makes a new thread and makes it the user's active one
func (r *ChatRepository) Create(ctx context.Context, userID uint, title string) (*model.ChatThread, error) {
	if title == "" {
		title = DefaultChatTitle
	}

	chat := &model.ChatThread{
		UserID: userID,
		Title:  title,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}

		return setActive(tx, userID, &chat.ID)
	})
	if err != nil {
		return nil, err
	}

	return chat, nil
}

// List returns the user's threads, most recently used first
func (r *ChatRepository) List(ctx context.Context, userID uint) ([]model.ChatThread, error) {
	chats := []model.ChatThread{}

	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&chats).
		Error

	return chats, err
}

// GetActive returns nil when the user has no active thread
func (r *ChatRepository) GetActive(ctx context.Context, userID uint) (*model.ChatThread, error) {
	var chat model.ChatThread

	err := r.DB.WithContext(ctx).
		Joins("JOIN user_active_chats ON user_active_chats.active_chat_id = user_chats.id").
		Where("user_active_chats.user_id = ? AND user_chats.user_id = ?", userID, userID).
		First(&chat).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &chat, nil
}

// SetActive points the user at chatID. It returns false when the thread
// doesn't exist or belongs to someone else.
func (r *ChatRepository) SetActive(ctx context.Context, userID, chatID uint) (bool, error) {
	ok := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := ownsChat(tx, userID, chatID)
		if err != nil || !owned {
			return err
		}

		ok = true
		return setActive(tx, userID, &chatID)
	})

	return ok, err
}

// Delete removes a thread with its messages and clears the active pointer
// if it pointed there. It returns false for foreign or missing threads.
func (r *ChatRepository) Delete(ctx context.Context, userID, chatID uint) (bool, error) {
	ok := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := ownsChat(tx, userID, chatID)
		if err != nil || !owned {
			return err
		}

		if err := tx.Where("chat_id = ?", chatID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&model.ChatThread{}, chatID).Error; err != nil {
			return err
		}

		err = tx.Model(&model.ActiveChat{}).
			Where("user_id = ? AND active_chat_id = ?", userID, chatID).
			Update("active_chat_id", nil).
			Error
		if err != nil {
			return err
		}

		ok = true
		return nil
	})

	return ok, err
}

// AddMessage appends a message and bumps the thread's updated_at
func (r *ChatRepository) AddMessage(ctx context.Context, chatID uint, role, content string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		ChatID:  chatID,
		Role:    role,
		Content: content,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Model(&model.ChatThread{}).
			Where("id = ?", chatID).
			Update("updated_at", time.Now()).
			Error
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// Messages returns the whole thread in the order it was written
func (r *ChatRepository) Messages(ctx context.Context, chatID uint) ([]model.ChatMessage, error) {
	msgs := []model.ChatMessage{}

	err := r.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&msgs).
		Error

	return msgs, err
}

// RecentMessages returns the last n messages of a thread, oldest first
func (r *ChatRepository) RecentMessages(ctx context.Context, chatID uint, n int) ([]model.ChatMessage, error) {
	msgs := []model.ChatMessage{}

	err := r.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&msgs).
		Error
	if err != nil {
		return nil, err
	}

	slices.Reverse(msgs)
	return msgs, nil
}

func ownsChat(tx *gorm.DB, userID, chatID uint) (bool, error) {
	var owned bool

	err := tx.Model(&model.ChatThread{}).
		Select("count(*) > 0").
		Where("id = ? AND user_id = ?", chatID, userID).
		Find(&owned).
		Error

	return owned, err
}

func setActive(tx *gorm.DB, userID uint, chatID *uint) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_chat_id"}),
	}).Create(&model.ActiveChat{
		UserID: userID,
		ChatID: chatID,
	}).Error
}
