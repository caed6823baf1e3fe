package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
)

type paymentStore interface {
	InsertPaymentEvent(ctx context.Context, arg sqlcgen.InsertPaymentEventParams) (int64, error)
	DeletePaymentEvent(ctx context.Context, arg sqlcgen.DeletePaymentEventParams) (int64, error)
}

// PaymentRepository deduplicates billing webhook deliveries.
type PaymentRepository struct {
	store paymentStore
}

func NewPaymentRepository(store paymentStore) *PaymentRepository {
	return &PaymentRepository{store: store}
}

// Record stores the event and reports whether it was seen for the first time.
func (r *PaymentRepository) Record(ctx context.Context, provider, eventID, eventType string, userID uuid.UUID) (bool, error) {
	var pgUser pgtype.UUID
	if userID != uuid.Nil {
		pgUser = pgUUID(userID)
	}
	n, err := r.store.InsertPaymentEvent(ctx, sqlcgen.InsertPaymentEventParams{
		Provider:  provider,
		EventID:   eventID,
		EventType: eventType,
		UserID:    pgUser,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Forget drops a recorded event so a redelivery is processed again.
func (r *PaymentRepository) Forget(ctx context.Context, provider, eventID string) error {
	_, err := r.store.DeletePaymentEvent(ctx, sqlcgen.DeletePaymentEventParams{Provider: provider, EventID: eventID})
	return err
}
