package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/code-duels/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// XPLedger credits experience to users. Each (user, reason) pair is paid at
// most once.
type XPLedger struct {
	db    *sqlx.DB
	store *store.LedgerStore
}

func NewXPLedger(db *sqlx.DB, store *store.LedgerStore) *XPLedger {
	return &XPLedger{db: db, store: store}
}

// Credit returns false when the reason was already credited to the user.
func (l *XPLedger) Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) (bool, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	inserted, err := l.store.InsertEntryTx(ctx, tx, userID, amount, reason)
	if err != nil {
		return false, fmt.Errorf("failed to record xp entry: %w", err)
	}
	if !inserted {
		return false, nil
	}

	updated, err := l.store.AddUserXPTx(ctx, tx, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to add user xp: %w", err)
	}
	if !updated {
		return false, ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	slog.Info("xp credited", "user_id", userID, "amount", amount, "reason", reason)
	return true, nil
}

func (l *XPLedger) Total(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.store.Total(ctx, userID)
}
