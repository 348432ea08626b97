package service

import (
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/store"
	"bitwise74/career-api/internal/testutil"
	"bitwise74/career-api/pkg/security"
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type sentMail struct {
	To   string
	Code string
}

// fakeDispatcher records mails instead of sending them
type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeDispatcher) DispatchVerification(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, sentMail{To: to, Code: code})
	return nil
}

func (f *fakeDispatcher) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sent) == 0 {
		return sentMail{}
	}

	return f.sent[len(f.sent)-1]
}

func (f *fakeDispatcher) SendVerificationCode(ctx context.Context, to, code string) error {
	return f.DispatchVerification(ctx, to, code)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func cheapHasher() *security.ArgonHash {
	return &security.ArgonHash{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newMemoryStore(t *testing.T) *store.MemoryStore {
	t.Helper()

	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	return s
}

func setupAuth(t *testing.T) (*AuthService, *fakeDispatcher, *clock, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mail := &fakeDispatcher{}
	clk := newClock()

	return &AuthService{
		Users:    &repository.UserRepository{DB: db},
		Sessions: &repository.SessionRepository{DB: db},
		Resends:  &repository.ResendRepository{DB: db, Policy: repository.DefaultResendPolicy},
		Store:    newMemoryStore(t),
		Hasher:   cheapHasher(),
		Mail:     mail,
		Now:      clk.Now,
	}, mail, clk, db
}
