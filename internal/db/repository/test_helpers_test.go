package repository

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// rowID is a fixed fixture id whose last byte is n.
func rowID(n byte) pgtype.UUID {
	return pgUUID(uuid.UUID{15: n})
}
