package app

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/service"
	"bitwise74/career-api/internal/store"
	"bitwise74/career-api/internal/testutil"
	"bitwise74/career-api/pkg/security"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testIP = "203.0.113.7"

func init() {
	gin.SetMode(gin.TestMode)
}

// mailbox keeps the last code mailed to each address
type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailbox) DispatchVerification(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.codes[to] = code
	return nil
}

func (m *mailbox) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.codes[to]
}

type replyGenerator struct {
	reply string
}

func (g *replyGenerator) Generate(context.Context, string) (string, error) {
	return g.reply, nil
}

type testEnv struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
	mail   *mailbox
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)

	otp := store.NewMemoryStore()
	t.Cleanup(func() { otp.Close() })

	hasher := &security.ArgonHash{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	mail := &mailbox{codes: map[string]string{}}

	d := &internal.Deps{
		DB:       conn,
		Store:    otp,
		Users:    &repository.UserRepository{DB: conn},
		Sessions: &repository.SessionRepository{DB: conn},
		Quiz:     &repository.QuizRepository{DB: conn},
		Chats:    &repository.ChatRepository{DB: conn},
		Reviews:  &repository.ReviewRepository{DB: conn},
		Resends:  &repository.ResendRepository{DB: conn, Policy: repository.DefaultResendPolicy},
		Frontend: "http://front.test",
	}

	d.Auth = &service.AuthService{
		Users:    d.Users,
		Sessions: d.Sessions,
		Resends:  d.Resends,
		Store:    otp,
		Hasher:   hasher,
		Mail:     mail,
	}

	d.OAuth = &service.OAuthService{
		Providers:   map[string]*service.Provider{},
		Users:       d.Users,
		Sessions:    d.Sessions,
		Store:       otp,
		Hasher:      hasher,
		LinkByEmail: true,
	}

	d.Bot = &service.ChatBot{Chats: d.Chats}

	router, err := NewRouter(d, RouterConfig{CORS: []string{"*"}})
	require.NoError(t, err)

	return &testEnv{
		t:      t,
		router: router,
		deps:   d,
		mail:   mail,
	}
}

// do sends a request connecting from ip. A non-nil body is encoded as JSON.
func (e *testEnv) do(method, path string, body any, ip string) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = ip + ":5555"

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

// register creates an account through the API and returns its id. The
// session is bound to ip.
func (e *testEnv) register(username, email, ip string) uint {
	e.t.Helper()

	w := e.do(http.MethodPost, "/api/users", gin.H{
		"username": username,
		"email":    email,
		"password": "correct-horse",
	}, ip)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		UserID uint `json:"userID"`
	}
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &res))

	return res.UserID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())

	return body
}
