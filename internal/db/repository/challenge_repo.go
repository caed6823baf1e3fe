package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
)

type challengeStore interface {
	UpsertSavedChallenge(ctx context.Context, arg sqlcgen.UpsertSavedChallengeParams) (sqlcgen.SavedChallenge, error)
	DeleteSavedChallenge(ctx context.Context, arg sqlcgen.DeleteSavedChallengeParams) (int64, error)
	ListSavedChallenges(ctx context.Context, userID pgtype.UUID) ([]sqlcgen.SavedChallenge, error)
}

// ChallengeRepository stores problems users saved from finished sessions.
type ChallengeRepository struct {
	store challengeStore
}

func NewChallengeRepository(store challengeStore) *ChallengeRepository {
	return &ChallengeRepository{store: store}
}

// Upsert saves a problem; saving the same title twice updates the existing row.
func (r *ChallengeRepository) Upsert(ctx context.Context, params sqlcgen.UpsertSavedChallengeParams) (sqlcgen.SavedChallenge, error) {
	return r.store.UpsertSavedChallenge(ctx, params)
}

// Delete removes one of the user's saved problems.
func (r *ChallengeRepository) Delete(ctx context.Context, userID, challengeID uuid.UUID) error {
	n, err := r.store.DeleteSavedChallenge(ctx, sqlcgen.DeleteSavedChallengeParams{
		ChallengeID: pgUUID(challengeID),
		UserID:      pgUUID(userID),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's saved problems, newest first.
func (r *ChallengeRepository) List(ctx context.Context, userID uuid.UUID) ([]sqlcgen.SavedChallenge, error) {
	return r.store.ListSavedChallenges(ctx, pgUUID(userID))
}
