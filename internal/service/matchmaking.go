package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/AdamBeresnev/code-duels/internal/utils"
	"github.com/google/uuid"
)

// TryMatch pairs a waiting duel with the oldest other waiting duel on the same
// question, or with a bot once the grace period has passed. It returns false
// when nothing changed. Safe to call repeatedly and concurrently.
func (s *DuelService) TryMatch(ctx context.Context, duelID uuid.UUID) (bool, error) {
	d, err := s.store.GetDuel(ctx, duelID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get duel: %w", err)
	}
	if d.Status != duel.StatusWaiting {
		return false, nil
	}

	// Needed for the bot tier; read before the transaction starts
	q, err := s.getQuestion(ctx, d.QuestionID)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	d, err = s.store.GetDuelTx(ctx, tx, duelID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get duel: %w", err)
	}
	if d.Status != duel.StatusWaiting {
		return false, nil
	}

	now := s.now().UTC()

	peer, err := s.store.FindPeerTx(ctx, tx, d)
	if err != nil {
		return false, fmt.Errorf("failed to find peer: %w", err)
	}
	if peer != nil {
		// The surviving duel takes the peer's creator as opponent, and the
		// peer's own duel is dropped from the waiting pool.
		ok, err := s.store.ActivateWithPeerTx(ctx, tx, d.ID, peer.ChallengerID, now)
		if err != nil || !ok {
			return false, err
		}
		moved, err := s.store.MoveSlotTx(ctx, tx, peer.ChallengerID, peer.ID, d.ID)
		if err != nil || !moved {
			return false, err
		}
		deleted, err := s.store.DeleteWaitingTx(ctx, tx, peer.ID)
		if err != nil || !deleted {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}

		slog.Info("duel matched with peer", "duel_id", d.ID, "opponent_id", peer.ChallengerID, "discarded_duel_id", peer.ID)
		// The peer is still watching its discarded duel; point it at the
		// surviving one.
		s.publishFresh(ctx, EventMatched, d.ID, peer.ID)
		return true, nil
	}

	if now.Sub(utils.AsUTC(d.CreatedAt)) <= s.timing.MatchGracePeriod {
		return false, nil
	}

	tier := duel.ClampTier(q.Difficulty)
	ok, err := s.store.AssignBotTx(ctx, tx, d.ID, tier, s.rollBot(tier), now)
	if err != nil || !ok {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	slog.Info("duel matched with bot", "duel_id", d.ID, "bot_tier", tier)
	s.publishFresh(ctx, EventMatched, d.ID)
	return true, nil
}

// MatchWaiting retries TryMatch for every waiting duel, oldest first, and
// returns how many were matched. One failing duel does not stop the sweep.
func (s *DuelService) MatchWaiting(ctx context.Context) (int, error) {
	waiting, err := s.store.ListByStatus(ctx, duel.StatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to list waiting duels: %w", err)
	}

	matched := 0
	for _, d := range waiting {
		if err := ctx.Err(); err != nil {
			return matched, err
		}
		ok, err := s.TryMatch(ctx, d.ID)
		if err != nil {
			slog.Warn("matchmaking sweep failed for duel", "duel_id", d.ID, "error", err)
			continue
		}
		if ok {
			matched++
		}
	}
	return matched, nil
}

// publishFresh re-reads the duel and sends the event to its own room and to
// any extra rooms given.
func (s *DuelService) publishFresh(ctx context.Context, eventType string, duelID uuid.UUID, extraRooms ...uuid.UUID) {
	if s.notifier == nil {
		return
	}
	d, err := s.store.GetDuel(ctx, duelID)
	if err != nil {
		return
	}
	var winner *duel.Participant
	if w, ok := d.Winner(); ok {
		winner = &w
	}
	s.publish(eventType, d, winner)
	for _, room := range extraRooms {
		s.notifier.Publish(room, DuelEvent{Type: eventType, Duel: d, Winner: winner})
	}
}
