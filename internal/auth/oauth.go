package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateTTL       = 10 * time.Minute
	oauthStateKeyPrefix = "oauth:state:"
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// OAuthConfig holds Google credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthService runs the Google authorization code flow with the state held in Redis.
type OAuthService struct {
	config      *oauth2.Config
	redis       *redis.Client
	auth        *Service
	httpClient  *http.Client
	userInfoURL string
	logger      zerolog.Logger
}

// NewOAuthService creates an OAuth service. It returns nil when no client id is configured.
func NewOAuthService(cfg OAuthConfig, redisClient *redis.Client, authSvc *Service, logger zerolog.Logger) *OAuthService {
	if cfg.ClientID == "" {
		return nil
	}
	return &OAuthService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		redis:       redisClient,
		auth:        authSvc,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userInfoURL: googleUserInfoURL,
		logger:      logger.With().Str("component", "oauth").Logger(),
	}
}

// Start stores a fresh state and returns the provider authorization URL.
func (s *OAuthService) Start(ctx context.Context, provider string) (authURL, state string, err error) {
	if provider != OAuthProviderGoogle {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedOAuth, provider)
	}

	state = uuid.NewString()
	if err := s.redis.Set(ctx, oauthStateKeyPrefix+state, provider, oauthStateTTL).Err(); err != nil {
		return "", "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// Callback consumes the state, exchanges the code and signs the user in.
func (s *OAuthService) Callback(ctx context.Context, provider, code, state string) (*User, *TokenPair, error) {
	if provider != OAuthProviderGoogle {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedOAuth, provider)
	}

	stored, err := s.redis.GetDel(ctx, oauthStateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) || (err == nil && stored != provider) {
		return nil, nil, ErrInvalidOAuthState
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load oauth state: %w", err)
	}

	info, err := s.exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	return s.auth.LoginOAuth(ctx, provider, *info)
}

func (s *OAuthService) exchange(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Msg("oauth token exchange failed")
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info API returned status %d", resp.StatusCode)
	}

	var googleUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	return &OAuthUserInfo{
		ProviderID: googleUser.ID,
		Email:      googleUser.Email,
		Name:       googleUser.Name,
	}, nil
}
