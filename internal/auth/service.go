package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	"github.com/gokatarajesh/challenger/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
)

type userStore interface {
	Create(ctx context.Context, params sqlcgen.CreateUserParams) (sqlcgen.User, error)
	GetByEmail(ctx context.Context, email string) (sqlcgen.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (sqlcgen.User, error)
	GetByOAuth(ctx context.Context, provider, subject string) (sqlcgen.User, error)
	UpdateLogin(ctx context.Context, userID uuid.UUID) error
}

// Service handles authentication and user management.
type Service struct {
	users    userStore
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
}

// NewService creates an authentication service.
func NewService(users userStore, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new email/password account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, nil, ErrEmailRequired
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, nil, err
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	dbUser, err := s.users.Create(ctx, sqlcgen.CreateUserParams{
		Email:        pgtype.Text{String: email, Valid: true},
		PasswordHash: pgtype.Text{String: passwordHash, Valid: true},
		DisplayName:  displayName,
		UserType:     UserTypeRegistered,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, nil, ErrEmailTaken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	user := fromDB(dbUser)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return &user, tokens, nil
}

// Login authenticates a user with email/password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, *TokenPair, error) {
	dbUser, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !dbUser.PasswordHash.Valid {
		return nil, nil, ErrInvalidCredentials
	}
	if !passwordMatches(dbUser.PasswordHash.String, req.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	return s.issue(ctx, fromDB(dbUser), "user logged in")
}

// LoginOAuth signs in the account linked to an identity provider subject, creating it on first use.
// An existing password account with the same email is signed in as-is.
func (s *Service) LoginOAuth(ctx context.Context, provider string, info OAuthUserInfo) (*User, *TokenPair, error) {
	if info.ProviderID == "" {
		return nil, nil, fmt.Errorf("%w: provider returned no subject", ErrInvalidCredentials)
	}

	dbUser, err := s.users.GetByOAuth(ctx, provider, info.ProviderID)
	if err == nil {
		return s.issue(ctx, fromDB(dbUser), "oauth user logged in")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("lookup oauth user: %w", err)
	}

	if info.Email != "" {
		dbUser, err = s.users.GetByEmail(ctx, info.Email)
		if err == nil {
			return s.issue(ctx, fromDB(dbUser), "oauth email matched existing user")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("lookup user: %w", err)
		}
	}

	displayName := info.Name
	if displayName == "" {
		displayName, _, _ = strings.Cut(info.Email, "@")
	}
	if displayName == "" {
		displayName = "Challenger"
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	dbUser, err = s.users.Create(ctx, sqlcgen.CreateUserParams{
		Email:         pgtype.Text{String: email, Valid: email != ""},
		DisplayName:   displayName,
		UserType:      UserTypeOAuth,
		OauthProvider: pgtype.Text{String: provider, Valid: true},
		OauthSubject:  pgtype.Text{String: info.ProviderID, Valid: true},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create oauth user: %w", err)
	}

	user := fromDB(dbUser)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID.String()).Str("provider", provider).Msg("oauth user created")
	return &user, tokens, nil
}

// RefreshToken issues a new access token from a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	dbUser, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user := fromDB(dbUser)
	access, err := s.tokenMgr.GenerateAccessToken(jwtUser(user))
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	return &TokenPair{AccessToken: access, ExpiresIn: int64(s.tokenMgr.AccessTTL().Seconds())}, nil
}

// Me loads the caller's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	dbUser, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	user := fromDB(dbUser)
	return &user, nil
}

// ValidateToken validates an access token and returns user claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

func (s *Service) issue(ctx context.Context, user User, msg string) (*User, *TokenPair, error) {
	if err := s.users.UpdateLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("update last login failed")
	}
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID.String()).Msg(msg)
	return &user, tokens, nil
}

func (s *Service) generateTokenPair(user User) (*TokenPair, error) {
	accessToken, err := s.tokenMgr.GenerateAccessToken(jwtUser(user))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(jwtUser(user))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}

func jwtUser(u User) jwt.User {
	return jwt.User{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, UserType: u.UserType}
}

func fromDB(u sqlcgen.User) User {
	return User{
		ID:          uuid.UUID(u.UserID.Bytes),
		Email:       u.Email.String,
		DisplayName: u.DisplayName,
		UserType:    u.UserType,
		Plan:        u.Plan,
	}
}
