package service

import (
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/testutil"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// fakeProvider serves the token and profile endpoints of both providers
type fakeProvider struct {
	tokenStatus  int
	emailsStatus int
	google       map[string]any
	githubUser   map[string]any
	githubEmails []githubEmail
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if f.tokenStatus != 0 {
			writeJSON(w, f.tokenStatus, map[string]string{"error": "invalid_grant"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.google)
	})

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.githubUser)
	})

	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if f.emailsStatus != 0 {
			writeJSON(w, f.emailsStatus, map[string]string{"message": "Bad credentials"})
			return
		}

		writeJSON(w, http.StatusOK, f.githubEmails)
	})

	return mux
}

func setupOAuth(t *testing.T, fp *fakeProvider) (*OAuthService, *clock, *gorm.DB) {
	t.Helper()

	srv := httptest.NewServer(fp.handler())
	t.Cleanup(srv.Close)

	endpoint := oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}

	db := testutil.SetupTestDB(t)
	clk := newClock()

	return &OAuthService{
		Providers: map[string]*Provider{
			ProviderGoogle: {
				Name:       ProviderGoogle,
				Config:     &oauth2.Config{ClientID: "g", ClientSecret: "gs", Endpoint: endpoint, RedirectURL: "http://localhost/auth/google/callback"},
				ProfileURL: srv.URL + "/userinfo",
			},
			ProviderGitHub: {
				Name:       ProviderGitHub,
				Config:     &oauth2.Config{ClientID: "h", ClientSecret: "hs", Endpoint: endpoint, RedirectURL: "http://localhost/auth/github/callback"},
				ProfileURL: srv.URL + "/user",
				EmailsURL:  srv.URL + "/user/emails",
			},
		},
		Users:       &repository.UserRepository{DB: db},
		Sessions:    &repository.SessionRepository{DB: db},
		Store:       newMemoryStore(t),
		Hasher:      cheapHasher(),
		LinkByEmail: true,
		Timeout:     5 * time.Second,
		Now:         clk.Now,
	}, clk, db
}

func TestStateValidOnce(t *testing.T) {
	svc, _, _ := setupOAuth(t, &fakeProvider{})
	ctx := context.Background()

	state, err := svc.GenerateState(ctx, ProviderGoogle)
	require.NoError(t, err)
	assert.Len(t, state, 43)

	ok, err := svc.ValidateState(ctx, state, ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ValidateState(ctx, state, ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateExpired(t *testing.T) {
	svc, clk, _ := setupOAuth(t, &fakeProvider{})
	ctx := context.Background()

	state, err := svc.GenerateState(ctx, ProviderGoogle)
	require.NoError(t, err)

	clk.Advance(StateTTL + time.Second)

	ok, err := svc.ValidateState(ctx, state, ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := svc.Store.Get(ctx, "oauth_state:"+state)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStateProviderMismatch(t *testing.T) {
	svc, _, _ := setupOAuth(t, &fakeProvider{})
	ctx := context.Background()

	state, err := svc.GenerateState(ctx, ProviderGoogle)
	require.NoError(t, err)

	ok, err := svc.ValidateState(ctx, state, ProviderGitHub)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.ValidateState(ctx, state, ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthURL(t *testing.T) {
	svc, _, _ := setupOAuth(t, &fakeProvider{})
	ctx := context.Background()

	raw, err := svc.AuthURL(ctx, ProviderGoogle)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "g", u.Query().Get("client_id"))

	ok, err := svc.ValidateState(ctx, state, ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.AuthURL(ctx, "facebook")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestCallbackGoogleCreatesUser(t *testing.T) {
	fp := &fakeProvider{google: map[string]any{
		"id":    "g-123",
		"email": "Carol@Example.com",
	}}
	svc, _, db := setupOAuth(t, fp)
	ctx := context.Background()

	state, err := svc.GenerateState(ctx, ProviderGoogle)
	require.NoError(t, err)

	u, err := svc.Callback(ctx, ProviderGoogle, "code", state, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", u.Email)
	assert.Equal(t, "Carol", u.Username)
	assert.True(t, u.Verified)

	var ident model.OAuthIdentity
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&ident).Error)
	assert.Equal(t, "g-123", ident.ProviderID)

	ok, err := svc.Sessions.VerifyAccess(ctx, u.ID, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	// State is spent
	_, err = svc.Callback(ctx, ProviderGoogle, "code", state, "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCallbackGitHubPicksPrimaryEmail(t *testing.T) {
	fp := &fakeProvider{
		githubUser: map[string]any{"id": 42, "login": "octo", "email": "public@example.com"},
		githubEmails: []githubEmail{
			{Email: "old@example.com", Verified: true},
			{Email: "main@example.com", Primary: true, Verified: true},
		},
	}
	svc, _, _ := setupOAuth(t, fp)
	ctx := context.Background()

	state, err := svc.GenerateState(ctx, ProviderGitHub)
	require.NoError(t, err)

	u, err := svc.Callback(ctx, ProviderGitHub, "code", state, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "main@example.com", u.Email)
	assert.Equal(t, "octo", u.Username)
}

func TestCallbackUpstreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		fp       *fakeProvider
		provider string
		step     string
		status   int
	}{
		{
			name:     "token exchange",
			fp:       &fakeProvider{tokenStatus: http.StatusBadRequest},
			provider: ProviderGoogle,
			step:     "token",
			status:   http.StatusBadRequest,
		},
		{
			name: "github emails",
			fp: &fakeProvider{
				githubUser:   map[string]any{"id": 42, "login": "octo"},
				emailsStatus: http.StatusUnauthorized,
			},
			provider: ProviderGitHub,
			step:     "emails",
			status:   http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := setupOAuth(t, tt.fp)
			ctx := context.Background()

			state, err := svc.GenerateState(ctx, tt.provider)
			require.NoError(t, err)

			_, err = svc.Callback(ctx, tt.provider, "code", state, "1.2.3.4")

			var uerr *UpstreamError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, tt.step, uerr.Step)
			assert.Equal(t, tt.status, uerr.Status)
		})
	}
}

func TestCallbackMissingEmail(t *testing.T) {
	fp := &fakeProvider{google: map[string]any{"id": "g-1"}}
	svc, _, _ := setupOAuth(t, fp)
	ctx := context.Background()

	state, err := svc.GenerateState(ctx, ProviderGoogle)
	require.NoError(t, err)

	_, err = svc.Callback(ctx, ProviderGoogle, "code", state, "1.2.3.4")

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLoginIdempotent(t *testing.T) {
	svc, _, db := setupOAuth(t, &fakeProvider{})
	ctx := context.Background()

	id := &Identity{Provider: ProviderGitHub, ProviderID: "42", Email: "dave@example.com", Name: "dave"}

	first, err := svc.Login(ctx, id, "1.2.3.4")
	require.NoError(t, err)

	// A changed email on the provider side still maps to the same account
	id.Email = "dave@new.example.com"
	second, err := svc.Login(ctx, id, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var users int64
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestLoginLinksByEmail(t *testing.T) {
	svc, _, db := setupOAuth(t, &fakeProvider{})
	ctx := context.Background()

	existing := testutil.CreateUser(t, db, "erin", "erin@example.com")

	u, err := svc.Login(ctx, &Identity{Provider: ProviderGoogle, ProviderID: "g-9", Email: "erin@example.com"}, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)

	linked, err := svc.Users.FindByIdentity(ctx, ProviderGoogle, "g-9")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
}

func TestLoginNoLinkByEmail(t *testing.T) {
	svc, _, db := setupOAuth(t, &fakeProvider{})
	svc.LinkByEmail = false
	ctx := context.Background()

	testutil.CreateUser(t, db, "erin", "erin@example.com")

	_, err := svc.Login(ctx, &Identity{Provider: ProviderGoogle, ProviderID: "g-9", Email: "erin@example.com"}, "1.2.3.4")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestPickGitHubEmail(t *testing.T) {
	assert.Equal(t, "v@example.com", pickGitHubEmail([]githubEmail{
		{Email: "p@example.com", Primary: true},
		{Email: "v@example.com", Verified: true},
	}, "f@example.com"))

	assert.Equal(t, "f@example.com", pickGitHubEmail(nil, "f@example.com"))
}
