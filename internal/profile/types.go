package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/challenger/internal/problem"
)

// Plan is the subscription tier of an account.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ParsePlan resolves a stored plan; anything unknown is treated as free.
func ParsePlan(s string) Plan {
	if strings.EqualFold(strings.TrimSpace(s), string(PlanPro)) {
		return PlanPro
	}
	return PlanFree
}

// DefaultQuotaWindow is the rolling window in which a free account may run one generative session.
const DefaultQuotaWindow = 24 * time.Hour

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrChallengeNotFound  = errors.New("saved challenge not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrSelfConnection     = errors.New("cannot connect to yourself")
	ErrInvalidChallenge   = errors.New("challenge title is required")
)

// Profile is the snapshot of an account consumed by sessions.
type Profile struct {
	UserID          uuid.UUID  `json:"user_id"`
	DisplayName     string     `json:"display_name"`
	Email           string     `json:"email,omitempty"`
	Plan            Plan       `json:"plan"`
	PlanProvider    string     `json:"plan_provider,omitempty"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
}

// Paid reports whether the account is on the paid plan.
func (p Profile) Paid() bool {
	return p.Plan == PlanPro
}

// CanGenerate applies the generative quota. When not allowed, next is the earliest time it will be.
func (p Profile) CanGenerate(now time.Time, window time.Duration) (allowed bool, next time.Time) {
	if p.Paid() || p.LastGeneratedAt == nil {
		return true, now
	}
	if window <= 0 {
		window = DefaultQuotaWindow
	}
	next = p.LastGeneratedAt.Add(window)
	if !now.Before(next) {
		return true, now
	}
	return false, next
}

// SavedChallenge is a problem kept on the user's profile.
type SavedChallenge struct {
	ID      uuid.UUID       `json:"id"`
	Problem problem.Problem `json:"problem"`
	SavedAt time.Time       `json:"saved_at"`
}

// Connection is a peer the user follows.
type Connection struct {
	PeerID      uuid.UUID `json:"peer_id"`
	DisplayName string    `json:"display_name"`
	Since       time.Time `json:"since"`
}
