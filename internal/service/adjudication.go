package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/AdamBeresnev/code-duels/internal/judge"
	"github.com/AdamBeresnev/code-duels/internal/question"
	"github.com/AdamBeresnev/code-duels/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxCodeLength = 10_000

type Submission struct {
	DuelID         uuid.UUID
	UserID         uuid.UUID
	Code           string
	Language       string
	ElapsedSeconds int
}

func (sub Submission) validate() error {
	switch {
	case strings.TrimSpace(sub.Code) == "":
		return fmt.Errorf("%w: code cannot be empty", ErrInvalidSubmission)
	case len(sub.Code) > maxCodeLength:
		return fmt.Errorf("%w: code is too long", ErrInvalidSubmission)
	case sub.ElapsedSeconds < 0:
		return fmt.Errorf("%w: elapsed time must be non-negative", ErrInvalidSubmission)
	case !judge.SupportedLanguage(sub.Language):
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidSubmission, sub.Language)
	}
	return nil
}

// Submit judges one participant's solution and decides the duel if this
// submission settles it. The judge runs outside any transaction.
func (s *DuelService) Submit(ctx context.Context, sub Submission) (*duel.Outcome, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}

	d, err := s.getDuel(ctx, sub.DuelID)
	if err != nil {
		return nil, err
	}
	if d.Status != duel.StatusActive {
		return nil, ErrDuelNotActive
	}
	if !d.IsParticipant(sub.UserID) {
		return nil, ErrNotAParticipant
	}

	q, err := s.getQuestion(ctx, d.QuestionID)
	if err != nil {
		return nil, err
	}

	verdict, err := s.judge.Evaluate(ctx, sub.Code, sub.Language, q.CorrectAnswer)
	if err != nil {
		slog.Warn("judge failed", "duel_id", d.ID, "user_id", sub.UserID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	attempt := &duel.Attempt{
		DuelID:         d.ID,
		UserID:         sub.UserID,
		QuestionID:     q.ID,
		Code:           sub.Code,
		Language:       sub.Language,
		IsCorrect:      verdict.Correct,
		Output:         verdict.Output,
		Error:          utils.StringOrNil(verdict.Error),
		ElapsedSeconds: sub.ElapsedSeconds,
	}
	if err := s.recordAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	result, err := s.adjudicate(ctx, d.ID, sub.UserID)
	if err != nil {
		return nil, err
	}

	reward := duelReward(q)
	if result.decided && !result.winner.IsBot() {
		s.creditWinner(ctx, result.duel.ID, result.winner.UserID, reward)
	}

	outcome := &duel.Outcome{
		DuelID:        result.duel.ID,
		Correct:       verdict.Correct,
		Output:        verdict.Output,
		Error:         verdict.Error,
		ExecutionTime: verdict.ExecutionTime,
		Status:        result.duel.Status,
		CompletedAt:   result.duel.CompletedAt,
	}
	if winner, ok := result.duel.Winner(); ok {
		outcome.Winner = &winner
		outcome.WinnerName = s.DisplayName(ctx, winner)
		if winner == duel.Human(sub.UserID) {
			outcome.XPAwarded = reward
		}
	}

	if result.decided {
		s.publish(EventCompleted, result.duel, outcome.Winner)
	} else {
		s.publish(EventJudged, result.duel, nil)
	}
	return outcome, nil
}

// recordAttempt appends to the attempt log while the duel is still active.
func (s *DuelService) recordAttempt(ctx context.Context, a *duel.Attempt) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	d, err := s.store.GetDuelTx(ctx, tx, a.DuelID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuelNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get duel: %w", err)
	}
	if d.Status != duel.StatusActive {
		return ErrDuelNotActive
	}

	now := s.now().UTC()
	a.CreatedAt = now
	if err := s.store.CreateAttemptTx(ctx, tx, a); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if err := s.store.TouchTx(ctx, tx, d.ID, now); err != nil {
		return fmt.Errorf("failed to touch duel: %w", err)
	}
	return tx.Commit()
}

type adjudication struct {
	duel    *duel.Duel
	winner  duel.Participant
	decided bool // true only for the call that completed the duel
}

// adjudicate settles the duel from both sides' latest attempts. If another
// submission already ended the duel this is a no-op that reports the result.
func (s *DuelService) adjudicate(ctx context.Context, duelID, submitterID uuid.UUID) (*adjudication, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := s.store.GetDuelTx(ctx, tx, duelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel: %w", err)
	}
	if d.Status != duel.StatusActive {
		return &adjudication{duel: d}, nil
	}

	winner, ok, err := s.decideWinner(ctx, tx, d, submitterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &adjudication{duel: d}, nil
	}

	completed, err := s.store.CompleteTx(ctx, tx, d.ID, winner, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to complete duel: %w", err)
	}
	if !completed {
		return &adjudication{duel: d}, nil
	}
	if err := s.store.ReleaseSlotsTx(ctx, tx, d.ID); err != nil {
		return nil, fmt.Errorf("failed to release duel slots: %w", err)
	}

	d, err = s.store.GetDuelTx(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("duel completed", "duel_id", d.ID, "winner", winner.String())
	return &adjudication{duel: d, winner: winner, decided: true}, nil
}

func (s *DuelService) decideWinner(ctx context.Context, tx *sqlx.Tx, d *duel.Duel, submitterID uuid.UUID) (duel.Participant, bool, error) {
	mine, err := s.store.LatestAttemptTx(ctx, tx, d.ID, submitterID)
	if err != nil {
		return duel.Participant{}, false, fmt.Errorf("failed to get attempt: %w", err)
	}

	other, ok := d.OtherSide(submitterID)
	if !ok {
		return duel.Participant{}, false, ErrNotAParticipant
	}

	if other.IsBot() {
		roll, ok := d.BotOutcome()
		if !ok {
			roll = s.rollBot(other.BotTier)
		}
		winner, decided := decideAgainstBot(submitterID, mine, other.BotTier, roll)
		return winner, decided, nil
	}

	theirs, err := s.store.LatestAttemptTx(ctx, tx, d.ID, other.UserID)
	if err != nil {
		return duel.Participant{}, false, fmt.Errorf("failed to get attempt: %w", err)
	}
	winner, decided := decideBetweenHumans(submitterID, mine, other.UserID, theirs)
	return winner, decided, nil
}

// decideBetweenHumans applies first-correct-wins. When both latest attempts
// are correct the lower elapsed time wins, then the earlier attempt.
func decideBetweenHumans(me uuid.UUID, mine *duel.Attempt, them uuid.UUID, theirs *duel.Attempt) (duel.Participant, bool) {
	mineOK := mine != nil && mine.IsCorrect
	theirsOK := theirs != nil && theirs.IsCorrect

	switch {
	case mineOK && theirsOK:
		if mine.ElapsedSeconds != theirs.ElapsedSeconds {
			if mine.ElapsedSeconds < theirs.ElapsedSeconds {
				return duel.Human(me), true
			}
			return duel.Human(them), true
		}
		if mine.ID < theirs.ID {
			return duel.Human(me), true
		}
		return duel.Human(them), true
	case mineOK:
		return duel.Human(me), true
	case theirsOK:
		return duel.Human(them), true
	}
	return duel.Participant{}, false
}

// decideAgainstBot compares the human's latest attempt with the bot's stored
// roll. The bot wins ties on time.
func decideAgainstBot(me uuid.UUID, mine *duel.Attempt, tier int, roll duel.BotRoll) (duel.Participant, bool) {
	humanCorrect := mine != nil && mine.IsCorrect
	botSolved := roll.Solved(duel.ProfileFor(tier), humanCorrect)

	switch {
	case humanCorrect && !botSolved:
		return duel.Human(me), true
	case !humanCorrect && botSolved:
		return duel.Bot(tier), true
	case humanCorrect && botSolved:
		if mine.ElapsedSeconds < roll.ResponseSeconds {
			return duel.Human(me), true
		}
		return duel.Bot(tier), true
	}
	return duel.Participant{}, false
}

func (s *DuelService) creditWinner(ctx context.Context, duelID, userID uuid.UUID, reward int) {
	if s.ledger == nil {
		return
	}
	// A failed credit never undoes the result.
	credited, err := s.ledger.Credit(ctx, userID, reward, "duel:"+duelID.String())
	if err != nil {
		slog.Error("failed to credit duel xp", "duel_id", duelID, "user_id", userID, "amount", reward, "error", err)
		return
	}
	if !credited {
		slog.Warn("duel xp already credited", "duel_id", duelID, "user_id", userID)
	}
}

func duelReward(q *question.Question) int {
	return q.XPReward + q.XPReward*duelBonusPercent/100
}
