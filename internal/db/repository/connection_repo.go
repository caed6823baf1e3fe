package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
)

type connectionStore interface {
	AddConnection(ctx context.Context, arg sqlcgen.AddConnectionParams) error
	RemoveConnection(ctx context.Context, arg sqlcgen.RemoveConnectionParams) (int64, error)
	ListConnections(ctx context.Context, userID pgtype.UUID) ([]sqlcgen.ListConnectionsRow, error)
}

// ConnectionRepository manages the directed user -> peer graph.
type ConnectionRepository struct {
	store connectionStore
}

func NewConnectionRepository(store connectionStore) *ConnectionRepository {
	return &ConnectionRepository{store: store}
}

// Add links peer to user. Adding an existing link is a no-op.
func (r *ConnectionRepository) Add(ctx context.Context, userID, peerID uuid.UUID) error {
	return r.store.AddConnection(ctx, sqlcgen.AddConnectionParams{UserID: pgUUID(userID), PeerID: pgUUID(peerID)})
}

// Remove unlinks peer from user.
func (r *ConnectionRepository) Remove(ctx context.Context, userID, peerID uuid.UUID) error {
	n, err := r.store.RemoveConnection(ctx, sqlcgen.RemoveConnectionParams{UserID: pgUUID(userID), PeerID: pgUUID(peerID)})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's connections with peer display names.
func (r *ConnectionRepository) List(ctx context.Context, userID uuid.UUID) ([]sqlcgen.ListConnectionsRow, error) {
	return r.store.ListConnections(ctx, pgUUID(userID))
}
