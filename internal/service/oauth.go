package service

import (
	"bitwise74/career-api/internal/metrics"
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/store"
	"bitwise74/career-api/pkg/security"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"

	StateTTL = 10 * time.Minute

	maxUpstreamBody = 1 << 20
)

// Provider is a configured OAuth application plus the endpoints used to
// read the user's profile
type Provider struct {
	Name       string
	Config     *oauth2.Config
	ProfileURL string
	EmailsURL  string
}

// Identity is a provider profile reduced to what login needs
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

func (i *Identity) Validate() error {
	if i.Provider == "" {
		return errors.New("identity has no provider")
	}

	if i.ProviderID == "" {
		return fmt.Errorf("%s returned no account id", i.Provider)
	}

	if i.Email == "" {
		return fmt.Errorf("%s returned no email address", i.Provider)
	}

	return nil
}

type stateEntry struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type OAuthService struct {
	Providers   map[string]*Provider
	Users       *repository.UserRepository
	Sessions    *repository.SessionRepository
	Store       store.OneTimeStore
	Hasher      security.PasswordHasher
	LinkByEmail bool
	Timeout     time.Duration
	HTTPClient  *http.Client
	Now         func() time.Time
}

// NewProviders builds the providers that have credentials configured.
// Callbacks land on <host.base_url>/auth/<provider>/callback.
func NewProviders() map[string]*Provider {
	base := strings.TrimRight(viper.GetString("host.base_url"), "/")
	providers := map[string]*Provider{}

	if id := viper.GetString("oauth.google.client_id"); id != "" {
		providers[ProviderGoogle] = &Provider{
			Name: ProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: viper.GetString("oauth.google.client_secret"),
				Endpoint:     google.Endpoint,
				RedirectURL:  base + "/auth/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
			},
			ProfileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		}
	}

	if id := viper.GetString("oauth.github.client_id"); id != "" {
		providers[ProviderGitHub] = &Provider{
			Name: ProviderGitHub,
			Config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: viper.GetString("oauth.github.client_secret"),
				Endpoint:     github.Endpoint,
				RedirectURL:  base + "/auth/github/callback",
				Scopes:       []string{"user:email"},
			},
			ProfileURL: "https://api.github.com/user",
			EmailsURL:  "https://api.github.com/user/emails",
		}
	}

	return providers
}

func (s *OAuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

func (s *OAuthService) provider(name string) (*Provider, error) {
	p, ok := s.Providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}

	return p, nil
}

// AuthURL issues a new state for provider and returns the URL the user
// has to be sent to
func (s *OAuthService) AuthURL(ctx context.Context, provider string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}

	state, err := s.GenerateState(ctx, provider)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{}
	if provider == ProviderGoogle {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "select_account"))
	}

	return p.Config.AuthCodeURL(state, opts...), nil
}

func (s *OAuthService) GenerateState(ctx context.Context, provider string) (string, error) {
	token, err := security.MakeStateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state, %w", err)
	}

	now := s.now()
	raw, err := json.Marshal(stateEntry{
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(StateTTL),
	})
	if err != nil {
		return "", err
	}

	if err := s.Store.Put(ctx, store.OAuthStatePrefix+token, string(raw), StateTTL); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateState consumes the state. It can succeed only once, and only for
// the provider that issued it before it expired.
func (s *OAuthService) ValidateState(ctx context.Context, token, provider string) (bool, error) {
	if token == "" {
		return false, nil
	}

	raw, ok, err := s.Store.Take(ctx, store.OAuthStatePrefix+token)
	if err != nil || !ok {
		return false, err
	}

	var entry stateEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return false, nil
	}

	if !s.now().Before(entry.ExpiresAt) {
		return false, nil
	}

	return entry.Provider == provider, nil
}

// Callback runs the whole provider round trip: checks the state, trades
// the code for a token, reads the profile and logs the user in from ip
func (s *OAuthService) Callback(ctx context.Context, provider, code, state, ip string) (*model.User, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}

	ok, err := s.ValidateState(ctx, state, provider)
	if err != nil {
		return nil, err
	}

	if !ok {
		metrics.OAuthFailures.WithLabelValues(provider, "state").Inc()
		return nil, ErrInvalidState
	}

	if code == "" {
		return nil, &ValidationError{errors.New("missing code parameter")}
	}

	identity, err := s.FetchIdentity(ctx, p, code)
	if err != nil {
		var uerr *UpstreamError
		if errors.As(err, &uerr) {
			metrics.OAuthFailures.WithLabelValues(provider, uerr.Step).Inc()
		}

		return nil, err
	}

	if err := identity.Validate(); err != nil {
		metrics.OAuthFailures.WithLabelValues(provider, "identity").Inc()
		return nil, &ValidationError{err}
	}

	return s.Login(ctx, identity, ip)
}

// FetchIdentity exchanges code and reads the provider profile
func (s *OAuthService) FetchIdentity(ctx context.Context, p *Provider, code string) (*Identity, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		uerr := &UpstreamError{Provider: p.Name, Step: "token", Body: err.Error()}

		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			uerr.Status = rerr.Response.StatusCode
			uerr.Body = string(rerr.Body)
		}

		return nil, uerr
	}

	client := p.Config.Client(ctx, token)

	switch p.Name {
	case ProviderGoogle:
		return fetchGoogleIdentity(ctx, client, p)
	case ProviderGitHub:
		return fetchGitHubIdentity(ctx, client, p)
	default:
		return nil, ErrUnknownProvider
	}
}

func fetchGoogleIdentity(ctx context.Context, client *http.Client, p *Provider) (*Identity, error) {
	var data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	if err := getJSON(ctx, client, p.Name, "profile", p.ProfileURL, &data); err != nil {
		return nil, err
	}

	name := data.Name
	if name == "" {
		name, _, _ = strings.Cut(data.Email, "@")
	}

	return &Identity{
		Provider:   p.Name,
		ProviderID: data.ID,
		Email:      normalizeEmail(data.Email),
		Name:       name,
	}, nil
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func fetchGitHubIdentity(ctx context.Context, client *http.Client, p *Provider) (*Identity, error) {
	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	var emails []githubEmail

	wp := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	wp.Go(func(ctx context.Context) error {
		return getJSON(ctx, client, p.Name, "profile", p.ProfileURL, &profile)
	})
	wp.Go(func(ctx context.Context) error {
		return getJSON(ctx, client, p.Name, "emails", p.EmailsURL, &emails)
	})

	if err := wp.Wait(); err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	id := ""
	if profile.ID != 0 {
		id = strconv.FormatInt(profile.ID, 10)
	}

	return &Identity{
		Provider:   p.Name,
		ProviderID: id,
		Email:      normalizeEmail(pickGitHubEmail(emails, profile.Email)),
		Name:       name,
	}, nil
}

// pickGitHubEmail prefers the primary verified address, then any verified
// one, then whatever the public profile shows
func pickGitHubEmail(emails []githubEmail, fallback string) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}

	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}

	return fallback
}

func getJSON(ctx context.Context, client *http.Client, provider, step, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &UpstreamError{Provider: provider, Step: step, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return &UpstreamError{Provider: provider, Step: step, Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Provider: provider, Step: step, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &UpstreamError{Provider: provider, Step: step, Status: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}

	return nil
}

// Login finds or creates the account behind identity and opens a session
// for ip. The same provider account always lands on the same user.
func (s *OAuthService) Login(ctx context.Context, identity *Identity, ip string) (*model.User, error) {
	u, err := s.resolveUser(ctx, identity)
	if errors.Is(err, repository.ErrEmailTaken) {
		// Lost a race with a concurrent login of the same account
		u, err = s.resolveUser(ctx, identity)
	}

	if err != nil {
		return nil, err
	}

	if err := s.Sessions.Create(ctx, u.ID, ip); err != nil {
		return nil, fmt.Errorf("failed to open session, %w", err)
	}

	metrics.Logins.WithLabelValues(identity.Provider, "ok").Inc()
	return u, nil
}

func (s *OAuthService) resolveUser(ctx context.Context, identity *Identity) (*model.User, error) {
	u, err := s.Users.FindByIdentity(ctx, identity.Provider, identity.ProviderID)
	if err == nil {
		return u, nil
	}

	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	u, err = s.Users.FindByEmail(ctx, identity.Email)
	if err == nil {
		if !s.LinkByEmail {
			return nil, ErrAccountExists
		}

		if err := s.Users.LinkIdentity(ctx, u.ID, identity.Provider, identity.ProviderID); err != nil {
			return nil, fmt.Errorf("failed to link identity, %w", err)
		}

		zap.L().Info("Linked OAuth identity to existing account",
			zap.Uint("user_id", u.ID),
			zap.String("provider", identity.Provider))
		return u, nil
	}

	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	placeholder, err := security.MakePlaceholderPassword()
	if err != nil {
		return nil, err
	}

	hash, err := s.Hasher.GenerateFromPassword(placeholder)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	u = &model.User{
		Username:     identity.Name,
		Email:        identity.Email,
		PasswordHash: hash,
		Verified:     true,
	}

	if err := s.Users.CreateWithIdentity(ctx, u, identity.Provider, identity.ProviderID); err != nil {
		return nil, err
	}

	return u, nil
}
