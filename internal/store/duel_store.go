package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// ErrSlotTaken is returned when a user already holds a waiting or active duel.
var ErrSlotTaken = errors.New("user already holds a duel slot")

type DuelStore struct {
	db *sqlx.DB
}

const (
	createDuelQuery = `
		INSERT INTO duels (id, challenger_id, question_id, status, created_at, last_activity_at)
		VALUES (:id, :challenger_id, :question_id, :status, :created_at, :last_activity_at)
	`
	getDuelQuery  = "SELECT * FROM duels WHERE id = ?"
	findPeerQuery = `
		SELECT * FROM duels
		WHERE status = ?
		AND question_id = ?
		AND challenger_id <> ?
		AND id <> ?
		AND opponent_id IS NULL
		AND opponent_bot_tier IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	activateWithPeerQuery = `
		UPDATE duels SET opponent_id = ?, status = ?, last_activity_at = ?
		WHERE id = ? AND status = ? AND opponent_id IS NULL AND opponent_bot_tier IS NULL
	`
	assignBotQuery = `
		UPDATE duels SET opponent_bot_tier = ?, bot_roll = ?, bot_response_seconds = ?, status = ?, last_activity_at = ?
		WHERE id = ? AND status = ? AND opponent_id IS NULL AND opponent_bot_tier IS NULL
	`
	completeDuelQuery = `
		UPDATE duels SET status = ?, winner_id = ?, winner_bot_tier = ?, completed_at = ?, last_activity_at = ?
		WHERE id = ? AND status = ?
	`
	expireDuelQuery = `
		UPDATE duels SET status = ?, expired_at = ?
		WHERE id = ? AND status = ?
	`
	touchDuelQuery        = "UPDATE duels SET last_activity_at = ? WHERE id = ? AND status = ?"
	deleteWaitingQuery    = "DELETE FROM duels WHERE id = ? AND status = ?"
	listByStatusQuery     = "SELECT * FROM duels WHERE status = ? ORDER BY created_at ASC, id ASC"
	listAvailableQuery    = `
		SELECT * FROM duels
		WHERE status = ?
		AND challenger_id <> ?
		AND opponent_id IS NULL
		AND opponent_bot_tier IS NULL
		ORDER BY created_at DESC
		LIMIT ?
	`
	listByParticipantQuery = `
		SELECT * FROM duels
		WHERE challenger_id = ? OR opponent_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	claimSlotQuery    = "INSERT INTO duel_slots (user_id, duel_id) VALUES (?, ?)"
	moveSlotQuery     = "UPDATE duel_slots SET duel_id = ? WHERE user_id = ? AND duel_id = ?"
	releaseSlotsQuery = "DELETE FROM duel_slots WHERE duel_id = ?"
	slotHolderQuery   = "SELECT duel_id FROM duel_slots WHERE user_id = ?"

	createAttemptQuery = `
		INSERT INTO duel_attempts (duel_id, user_id, question_id, code, language, is_correct, output, error, elapsed_seconds, created_at)
		VALUES (:duel_id, :user_id, :question_id, :code, :language, :is_correct, :output, :error, :elapsed_seconds, :created_at)
	`
	latestAttemptQuery = `
		SELECT * FROM duel_attempts
		WHERE duel_id = ? AND user_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	listAttemptsQuery = "SELECT * FROM duel_attempts WHERE duel_id = ? ORDER BY id ASC"
)

func NewDuelStore(db *sqlx.DB) *DuelStore {
	return &DuelStore{db: db}
}

func (s *DuelStore) CreateDuel(ctx context.Context, tx *sqlx.Tx, d *duel.Duel) error {
	_, err := tx.NamedExecContext(ctx, createDuelQuery, d)
	return err
}

func (s *DuelStore) GetDuel(ctx context.Context, id uuid.UUID) (*duel.Duel, error) {
	var d duel.Duel
	err := s.db.GetContext(ctx, &d, getDuelQuery, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DuelStore) GetDuelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*duel.Duel, error) {
	var d duel.Duel
	err := tx.GetContext(ctx, &d, getDuelQuery, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindPeerTx returns the oldest other waiting duel on the same question, or
// nil when there is none.
func (s *DuelStore) FindPeerTx(ctx context.Context, tx *sqlx.Tx, d *duel.Duel) (*duel.Duel, error) {
	var peer duel.Duel
	err := tx.GetContext(ctx, &peer, findPeerQuery, duel.StatusWaiting, d.QuestionID, d.ChallengerID, d.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &peer, nil
}

// The conditional updates below return false when the duel already left the
// expected status, so concurrent callers cannot both win the transition.

func (s *DuelStore) ActivateWithPeerTx(ctx context.Context, tx *sqlx.Tx, duelID, opponentID uuid.UUID, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, activateWithPeerQuery, opponentID, duel.StatusActive, now, duelID, duel.StatusWaiting)
	return affectedOne(res, err)
}

func (s *DuelStore) AssignBotTx(ctx context.Context, tx *sqlx.Tx, duelID uuid.UUID, tier int, roll duel.BotRoll, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, assignBotQuery, tier, roll.Roll, roll.ResponseSeconds, duel.StatusActive, now, duelID, duel.StatusWaiting)
	return affectedOne(res, err)
}

func (s *DuelStore) CompleteTx(ctx context.Context, tx *sqlx.Tx, duelID uuid.UUID, winner duel.Participant, now time.Time) (bool, error) {
	var winnerID *uuid.UUID
	var winnerTier *int
	if winner.IsBot() {
		tier := winner.BotTier
		winnerTier = &tier
	} else {
		id := winner.UserID
		winnerID = &id
	}
	res, err := tx.ExecContext(ctx, completeDuelQuery, duel.StatusCompleted, winnerID, winnerTier, now, now, duelID, duel.StatusActive)
	return affectedOne(res, err)
}

func (s *DuelStore) ExpireTx(ctx context.Context, tx *sqlx.Tx, duelID uuid.UUID, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, expireDuelQuery, duel.StatusExpired, now, duelID, duel.StatusActive)
	return affectedOne(res, err)
}

func (s *DuelStore) TouchTx(ctx context.Context, tx *sqlx.Tx, duelID uuid.UUID, now time.Time) error {
	_, err := tx.ExecContext(ctx, touchDuelQuery, now, duelID, duel.StatusActive)
	return err
}

func (s *DuelStore) DeleteWaitingTx(ctx context.Context, tx *sqlx.Tx, duelID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, deleteWaitingQuery, duelID, duel.StatusWaiting)
	return affectedOne(res, err)
}

func (s *DuelStore) ListByStatus(ctx context.Context, status duel.Status) ([]duel.Duel, error) {
	var duels []duel.Duel
	err := s.db.SelectContext(ctx, &duels, listByStatusQuery, status)
	return duels, err
}

func (s *DuelStore) ListAvailable(ctx context.Context, excludeUserID uuid.UUID, limit int) ([]duel.Duel, error) {
	var duels []duel.Duel
	err := s.db.SelectContext(ctx, &duels, listAvailableQuery, duel.StatusWaiting, excludeUserID, limit)
	return duels, err
}

func (s *DuelStore) ListByParticipant(ctx context.Context, userID uuid.UUID, limit int) ([]duel.Duel, error) {
	var duels []duel.Duel
	err := s.db.SelectContext(ctx, &duels, listByParticipantQuery, userID, userID, limit)
	return duels, err
}

func (s *DuelStore) ClaimSlotTx(ctx context.Context, tx *sqlx.Tx, userID, duelID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, claimSlotQuery, userID, duelID)
	if isConstraintViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (s *DuelStore) MoveSlotTx(ctx context.Context, tx *sqlx.Tx, userID, fromDuelID, toDuelID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, moveSlotQuery, toDuelID, userID, fromDuelID)
	return affectedOne(res, err)
}

func (s *DuelStore) ReleaseSlotsTx(ctx context.Context, tx *sqlx.Tx, duelID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, releaseSlotsQuery, duelID)
	return err
}

// SlotHolder returns the duel currently holding the user's slot, or nil.
func (s *DuelStore) SlotHolder(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var duelID uuid.UUID
	err := s.db.GetContext(ctx, &duelID, slotHolderQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &duelID, nil
}

func (s *DuelStore) CreateAttemptTx(ctx context.Context, tx *sqlx.Tx, a *duel.Attempt) error {
	res, err := tx.NamedExecContext(ctx, createAttemptQuery, a)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// LatestAttemptTx returns the user's most recent attempt in the duel, or nil.
func (s *DuelStore) LatestAttemptTx(ctx context.Context, tx *sqlx.Tx, duelID, userID uuid.UUID) (*duel.Attempt, error) {
	var a duel.Attempt
	err := tx.GetContext(ctx, &a, latestAttemptQuery, duelID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *DuelStore) ListAttempts(ctx context.Context, duelID uuid.UUID) ([]duel.Attempt, error) {
	var attempts []duel.Attempt
	err := s.db.SelectContext(ctx, &attempts, listAttemptsQuery, duelID)
	return attempts, err
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
