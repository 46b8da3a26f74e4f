package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LedgerStore struct {
	db *sqlx.DB
}

const (
	insertLedgerEntryQuery = "INSERT INTO xp_ledger (user_id, amount, reason) VALUES (?, ?, ?)"
	addUserXPQuery         = "UPDATE users SET xp = xp + ? WHERE id = ?"
	sumLedgerQuery         = "SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = ?"
)

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// InsertEntryTx records a credit. It returns false when the same user and
// reason were already credited.
func (s *LedgerStore) InsertEntryTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, reason string) (bool, error) {
	_, err := tx.ExecContext(ctx, insertLedgerEntryQuery, userID, amount, reason)
	if isConstraintViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *LedgerStore) AddUserXPTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int) (bool, error) {
	res, err := tx.ExecContext(ctx, addUserXPQuery, amount, userID)
	return affectedOne(res, err)
}

func (s *LedgerStore) Total(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, sumLedgerQuery, userID)
	return total, err
}
