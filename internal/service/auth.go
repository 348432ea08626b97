package service

import (
	"bitwise74/career-api/internal/metrics"
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/store"
	"bitwise74/career-api/pkg/security"
	"bitwise74/career-api/pkg/validators"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const CodeTTL = 10 * time.Minute

type codeEntry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService struct {
	Users    *repository.UserRepository
	Sessions *repository.SessionRepository
	Resends  *repository.ResendRepository
	Store    store.OneTimeStore
	Hasher   security.PasswordHasher
	Mail     MailDispatcher
	Now      func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Register creates an account, opens a session for ip and mails a
// verification code. Mail failures are only logged.
func (s *AuthService) Register(ctx context.Context, username, email, password, ip string) (*model.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	if err := validators.UsernameValidator(username); err != nil {
		return nil, &ValidationError{err}
	}

	if err := validators.EmailValidator(email); err != nil {
		return nil, &ValidationError{err}
	}

	if err := validators.PasswordValidator(password); err != nil {
		return nil, &ValidationError{err}
	}

	hash, err := s.Hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.Users.CreateWithSession(ctx, u, ip); err != nil {
		return nil, err
	}

	metrics.Registrations.Inc()

	if err := s.SendVerificationCode(ctx, email); err != nil {
		zap.L().Error("Failed to send verification code", zap.Error(err), zap.Uint("user_id", u.ID))
	}

	return u, nil
}

// Login checks the credentials and opens a session for ip
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*model.User, error) {
	email = normalizeEmail(email)

	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.Logins.WithLabelValues("password", "rejected").Inc()
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	ok, err := s.Hasher.VerifyPasswd(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		metrics.Logins.WithLabelValues("password", "rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := s.Sessions.Create(ctx, u.ID, ip); err != nil {
		return nil, fmt.Errorf("failed to open session, %w", err)
	}

	metrics.Logins.WithLabelValues("password", "ok").Inc()
	return u, nil
}

// SendVerificationCode issues a new code for email, replacing any older
// one, and hands the mail to the dispatcher
func (s *AuthService) SendVerificationCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	code, err := security.MakeVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate code, %w", err)
	}

	raw, err := json.Marshal(codeEntry{
		Code:      code,
		ExpiresAt: s.now().Add(CodeTTL),
	})
	if err != nil {
		return err
	}

	if err := s.Store.Put(ctx, store.VerifyPrefix+email, string(raw), CodeTTL); err != nil {
		return err
	}

	if err := s.Mail.DispatchVerification(ctx, email, code); err != nil {
		return fmt.Errorf("failed to dispatch mail, %w", err)
	}

	return nil
}

// VerifyCode reports whether code is the live code issued to email. A
// matching code is consumed and the user marked verified, a wrong code
// leaves the issued one in place.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	email = normalizeEmail(email)
	key := store.VerifyPrefix + email

	raw, ok, err := s.Store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	var entry codeEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		zap.L().Warn("Dropping unreadable verification code", zap.String("email", email), zap.Error(err))
		return false, s.Store.Delete(ctx, key)
	}

	if !s.now().Before(entry.ExpiresAt) {
		_, err := s.Store.TakeIfMatch(ctx, key, raw)
		return false, err
	}

	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(strings.TrimSpace(code))) != 1 {
		return false, nil
	}

	// Only one of two concurrent verifications can take the entry
	taken, err := s.Store.TakeIfMatch(ctx, key, raw)
	if err != nil || !taken {
		return false, err
	}

	if err := s.Users.MarkVerified(ctx, email); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return true, fmt.Errorf("failed to mark user verified, %w", err)
	}

	return true, nil
}

// ResendCode mails a fresh code unless the address is throttled. On
// throttling the returned duration says how long to wait.
func (s *AuthService) ResendCode(ctx context.Context, email string) (time.Duration, error) {
	email = normalizeEmail(email)

	if err := validators.EmailValidator(email); err != nil {
		return 0, &ValidationError{err}
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	if u.Verified {
		return 0, ErrAlreadyVerified
	}

	wait, err := s.Resends.Record(ctx, email, s.now())
	if err != nil {
		return wait, err
	}

	return 0, s.SendVerificationCode(ctx, email)
}
