package auth

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEmailRequired      = errors.New("email required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrOAuthNotConfigured = errors.New("oauth not configured")
	ErrUnsupportedOAuth   = errors.New("unsupported oauth provider")
	ErrInvalidOAuthState  = errors.New("invalid or expired oauth state")
)

// User represents an authenticated account.
type User struct {
	ID          uuid.UUID `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	UserType    string    `json:"user_type"`
	Plan        string    `json:"plan"`
}

// User types stored on accounts.
const (
	UserTypeRegistered = "registered"
	UserTypeOAuth      = "oauth"
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RegisterRequest for email/password registration.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest for email/password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuthProvider constants.
const (
	OAuthProviderGoogle = "google"
)

// OAuthUserInfo contains user data from an OAuth provider.
type OAuthUserInfo struct {
	ProviderID string
	Email      string
	Name       string
}
