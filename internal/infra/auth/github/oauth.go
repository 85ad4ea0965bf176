// Package github implements the GitHub authorization code flow.
package github

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	"warden/internal/domain/service"
	"warden/internal/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBaseURL        = "https://api.github.com"
	defaultRequestsPerSecond = 5
	stateTTL                 = 10 * time.Minute
	httpTimeout              = 10 * time.Second
)

var errNotConfigured = errors.New("github oauth is not configured")

// OAuthService talks to GitHub for the authorization code flow.
type OAuthService struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
	httpClient  *http.Client
	limiter     *rate.Limiter

	// Issued states for CSRF protection, single use.
	states StateStore
}

// NewOAuthService creates the GitHub OAuth service. Without a githubOAuth
// section every operation fails, which the callback turns into a failure redirect.
func NewOAuthService(cfg *config.Config, states StateStore) service.OAuthService {
	if cfg.GitHubOAuth == nil {
		return &OAuthService{states: states}
	}

	return newOAuthService(cfg.GitHubOAuth, endpoints.GitHub, &http.Client{Timeout: httpTimeout}, states)
}

func newOAuthService(cfg *config.GitHubOAuthConfig, endpoint oauth2.Endpoint, httpClient *http.Client, states StateStore) *OAuthService {
	apiBaseURL := cfg.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	return &OAuthService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		states:     states,
	}
}

// Provider returns the OAuth provider type
func (s *OAuthService) Provider() entity.ProviderType {
	return entity.ProviderTypeGitHub
}

// AuthorizationURL builds the consent URL and remembers its state.
func (s *OAuthService) AuthorizationURL(ctx context.Context) (string, error) {
	if s.oauthConfig == nil {
		return "", errNotConfigured
	}

	state, err := generateState()
	if err != nil {
		return "", err
	}
	if err := s.states.Save(ctx, state, stateTTL); err != nil {
		return "", err
	}

	return s.oauthConfig.AuthCodeURL(state), nil
}

// ValidateState consumes state. Unknown, reused and stale states all fail.
func (s *OAuthService) ValidateState(ctx context.Context, state string) error {
	if s.oauthConfig == nil {
		return errNotConfigured
	}
	if state == "" {
		return service.ErrOAuthState
	}

	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrOAuthState
	}

	return nil
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate oauth state")
	}

	return hex.EncodeToString(buf), nil
}

// ExchangeCode trades an authorization code for a GitHub access token.
func (s *OAuthService) ExchangeCode(ctx context.Context, code string) (string, error) {
	if s.oauthConfig == nil {
		return "", errNotConfigured
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(service.ErrOAuthNetwork, err.Error())
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", classifyExchangeError(err)
	}

	return token.AccessToken, nil
}

func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return errors.Wrapf(service.ErrOAuthProvider, "token exchange rejected: %s", retrieveErr.ErrorCode)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return errors.Wrap(service.ErrOAuthNetwork, err.Error())
	}

	return errors.Wrap(service.ErrOAuthInvalidResponse, err.Error())
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// FetchIdentity loads the authenticated GitHub user.
func (s *OAuthService) FetchIdentity(ctx context.Context, accessToken string) (*service.OAuthUser, error) {
	if s.oauthConfig == nil {
		return nil, errNotConfigured
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(service.ErrOAuthNetwork, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+"/user", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "warden")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(service.ErrOAuthNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(service.ErrOAuthProvider, "user request failed with status %d", resp.StatusCode)
	}

	var user githubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(service.ErrOAuthInvalidResponse, err.Error())
	}
	if user.ID == 0 || user.Login == "" {
		return nil, errors.Wrap(service.ErrOAuthInvalidResponse, "user response missing id or login")
	}

	return &service.OAuthUser{
		ID:        strconv.FormatInt(user.ID, 10),
		Login:     user.Login,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Provider:  entity.ProviderTypeGitHub,
	}, nil
}
