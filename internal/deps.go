package internal

import (
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/service"
	"bitwise74/career-api/internal/store"

	"gorm.io/gorm"
)

type Deps struct {
	DB    *gorm.DB
	Store store.OneTimeStore

	Users    *repository.UserRepository
	Sessions *repository.SessionRepository
	Quiz     *repository.QuizRepository
	Chats    *repository.ChatRepository
	Reviews  *repository.ReviewRepository
	Resends  *repository.ResendRepository

	Auth  *service.AuthService
	OAuth *service.OAuthService
	Bot   *service.ChatBot

	// Frontend is where OAuth logins are sent back to
	Frontend string
}
