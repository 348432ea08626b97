package middleware

import (
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/testutil"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupGate(t *testing.T) (*gin.Engine, uint) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	sessions := &repository.SessionRepository{DB: db}

	u := testutil.CreateUser(t, db, "alice", "a@example.com")
	require.NoError(t, sessions.Create(context.Background(), u.ID, "1.2.3.4"))

	r := gin.New()
	r.Use(NewRequestIDMiddleware())

	handler := func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, gin.H{
			"userID": c.MustGet("userID").(uint),
			"body":   string(body),
		})
	}

	r.GET("/gated", NewSessionGate(sessions), handler)
	r.POST("/gated", NewSessionGate(sessions), handler)

	return r, u.ID
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["requestID"])

	msg, _ := body["error"].(string)
	return msg
}

func TestSessionGate(t *testing.T) {
	r, userID := setupGate(t)
	id := jsonUint(userID)

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
		errMsg string
	}{
		{
			name:   "query",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/gated?user_id="+id, nil) },
			status: http.StatusOK,
		},
		{
			name: "json body",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/gated", strings.NewReader(`{"user_id":`+id+`,"current_question":3}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusOK,
		},
		{
			name: "json string id",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/gated", strings.NewReader(`{"user_id":"`+id+`"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusOK,
		},
		{
			name: "form body",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/gated", strings.NewReader(url.Values{"user_id": {id}}.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			status: http.StatusOK,
		},
		{
			name:   "missing",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/gated", nil) },
			status: http.StatusForbidden,
			errMsg: "User ID required",
		},
		{
			name:   "not a number",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/gated?user_id=abc", nil) },
			status: http.StatusForbidden,
			errMsg: "Invalid user ID",
		},
		{
			name: "json bool",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/gated", strings.NewReader(`{"user_id":true}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusForbidden,
			errMsg: "Invalid user ID",
		},
		{
			name:   "other user",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/gated?user_id=9999", nil) },
			status: http.StatusForbidden,
			errMsg: "Access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req()
			req.RemoteAddr = "1.2.3.4:5555"

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, errorOf(t, w))
			}
		})
	}
}

func TestSessionGateRestoresBody(t *testing.T) {
	r, userID := setupGate(t)

	payload := `{"user_id":` + jsonUint(userID) + `,"answers":{"A":1}}`
	req := httptest.NewRequest(http.MethodPost, "/gated", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:5555"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, payload, body["body"])
}

func TestSessionGateOtherAddress(t *testing.T) {
	r, userID := setupGate(t)

	req := httptest.NewRequest(http.MethodGet, "/gated?user_id="+jsonUint(userID), nil)
	req.RemoteAddr = "5.6.7.8:5555"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", errorOf(t, w))
}

func jsonUint(v uint) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2})

	r := gin.New()
	r.Use(NewRequestIDMiddleware(), rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("1.2.3.4:1000"))
	assert.Equal(t, http.StatusOK, do("1.2.3.4:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("1.2.3.4:1002"))
	assert.Equal(t, http.StatusOK, do("5.6.7.8:1000"))
}

func TestBodySizeLimiter(t *testing.T) {
	r := gin.New()
	r.Use(NewRequestIDMiddleware(), BodySizeLimiter(16))
	r.POST("/", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"aaaaaaaaaaaaaaaaaaaaaaaa"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	r := gin.New()
	r.Use(NewRequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestID")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, w.Body.String(), 10)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
}

func TestTurnstile(t *testing.T) {
	verify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(turnstileResponse{Success: body["response"] == "good"})
	}))
	t.Cleanup(verify.Close)

	old := TurnstileVerifyURL
	TurnstileVerifyURL = verify.URL
	t.Cleanup(func() { TurnstileVerifyURL = old })

	viper.Set("cloudflare.turnstile.enabled", true)
	viper.Set("cloudflare.turnstile.secret_token", "secret")
	t.Cleanup(func() { viper.Set("cloudflare.turnstile.enabled", false) })

	r := gin.New()
	r.Use(NewRequestIDMiddleware(), NewTurnstileMiddleware())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if token != "" {
			req.Header.Set("TurnstileToken", token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusBadRequest, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("bad"))
	assert.Equal(t, http.StatusOK, do("good"))
}
