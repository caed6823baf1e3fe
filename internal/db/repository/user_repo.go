package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
)

type userStore interface {
	CreateUser(ctx context.Context, arg sqlcgen.CreateUserParams) (sqlcgen.User, error)
	GetUserByEmail(ctx context.Context, email pgtype.Text) (sqlcgen.User, error)
	GetUserByID(ctx context.Context, userID pgtype.UUID) (sqlcgen.User, error)
	GetUserByOAuth(ctx context.Context, arg sqlcgen.GetUserByOAuthParams) (sqlcgen.User, error)
	UpdateUserLogin(ctx context.Context, userID pgtype.UUID) error
	UpdateUserPlan(ctx context.Context, arg sqlcgen.UpdateUserPlanParams) (sqlcgen.User, error)
	TouchUserGeneration(ctx context.Context, arg sqlcgen.TouchUserGenerationParams) error
}

// UserRepository exposes typed DB operations for accounts and plans.
type UserRepository struct {
	store userStore
}

// NewUserRepository wraps sqlc Queries for user-specific operations.
func NewUserRepository(store userStore) *UserRepository {
	return &UserRepository{store: store}
}

// Create inserts a new account. A taken email or OAuth subject yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, params sqlcgen.CreateUserParams) (sqlcgen.User, error) {
	u, err := r.store.CreateUser(ctx, params)
	return u, duplicate(err)
}

// GetByEmail fetches a user by (case-folded) email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (sqlcgen.User, error) {
	u, err := r.store.GetUserByEmail(ctx, pgText(strings.ToLower(strings.TrimSpace(email))))
	return u, notFound(err)
}

// GetByID fetches a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (sqlcgen.User, error) {
	u, err := r.store.GetUserByID(ctx, pgUUID(userID))
	return u, notFound(err)
}

// GetByOAuth fetches the account linked to an identity provider subject.
func (r *UserRepository) GetByOAuth(ctx context.Context, provider, subject string) (sqlcgen.User, error) {
	u, err := r.store.GetUserByOAuth(ctx, sqlcgen.GetUserByOAuthParams{
		OauthProvider: pgText(provider),
		OauthSubject:  pgText(subject),
	})
	return u, notFound(err)
}

// UpdateLogin records the last login timestamp.
func (r *UserRepository) UpdateLogin(ctx context.Context, userID uuid.UUID) error {
	return r.store.UpdateUserLogin(ctx, pgUUID(userID))
}

// UpdatePlan switches the subscription plan and remembers which provider set it.
func (r *UserRepository) UpdatePlan(ctx context.Context, userID uuid.UUID, plan, provider, reference string) (sqlcgen.User, error) {
	u, err := r.store.UpdateUserPlan(ctx, sqlcgen.UpdateUserPlanParams{
		UserID:        pgUUID(userID),
		Plan:          plan,
		PlanProvider:  pgText(provider),
		PlanReference: pgText(reference),
	})
	return u, notFound(err)
}

// TouchGeneration stores the time of the latest generative session.
func (r *UserRepository) TouchGeneration(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.store.TouchUserGeneration(ctx, sqlcgen.TouchUserGenerationParams{
		UserID:          pgUUID(userID),
		LastGeneratedAt: pgtype.Timestamptz{Time: at, Valid: true},
	})
}
