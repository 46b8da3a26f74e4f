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

// Cleanup deletes waiting duels nobody matched within the waiting TTL and
// returns how many were removed.
func (s *DuelService) Cleanup(ctx context.Context) (int, error) {
	waiting, err := s.store.ListByStatus(ctx, duel.StatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to list waiting duels: %w", err)
	}

	now := s.now().UTC()
	var stale []uuid.UUID
	for i := range waiting {
		if now.Sub(utils.AsUTC(waiting[i].CreatedAt)) > s.timing.WaitingTTL {
			stale = append(stale, waiting[i].ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	reaped := 0
	for _, id := range stale {
		// Only still-waiting rows are deleted; a duel matched since the
		// listing is left alone.
		deleted, err := s.store.DeleteWaitingTx(ctx, tx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete waiting duel: %w", err)
		}
		if !deleted {
			continue
		}
		if err := s.store.ReleaseSlotsTx(ctx, tx, id); err != nil {
			return 0, fmt.Errorf("failed to release duel slots: %w", err)
		}
		reaped++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if reaped > 0 {
		slog.Info("reaped waiting duels", "count", reaped)
	}
	return reaped, nil
}

// ExpireIdle moves active duels with no activity for the idle TTL to
// expired, with no winner, and frees both participants.
func (s *DuelService) ExpireIdle(ctx context.Context) (int, error) {
	active, err := s.store.ListByStatus(ctx, duel.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to list active duels: %w", err)
	}

	expired := 0
	for i := range active {
		if !s.idle(&active[i]) {
			continue
		}
		d, err := s.expire(ctx, active[i].ID)
		if err != nil {
			slog.Warn("failed to expire duel", "duel_id", active[i].ID, "error", err)
			continue
		}
		if d == nil {
			continue
		}
		expired++
		slog.Info("duel expired", "duel_id", d.ID)
		s.publish(EventExpired, d, nil)
	}
	return expired, nil
}

func (s *DuelService) idle(d *duel.Duel) bool {
	return s.now().UTC().Sub(utils.AsUTC(d.LastActivityAt)) > s.timing.ActiveIdleTTL
}

// expire returns nil when the duel saw activity or ended in the meantime.
func (s *DuelService) expire(ctx context.Context, duelID uuid.UUID) (*duel.Duel, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := s.store.GetDuelTx(ctx, tx, duelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.Status != duel.StatusActive || !s.idle(d) {
		return nil, nil
	}

	ok, err := s.store.ExpireTx(ctx, tx, d.ID, s.now().UTC())
	if err != nil || !ok {
		return nil, err
	}
	if err := s.store.ReleaseSlotsTx(ctx, tx, d.ID); err != nil {
		return nil, fmt.Errorf("failed to release duel slots: %w", err)
	}

	d, err = s.store.GetDuelTx(ctx, tx, d.ID)
	if err != nil {
		return nil, err
	}
	return d, tx.Commit()
}

// RunMaintenance is the explicit maintenance trigger: it reaps stale waiting
// duels and expires idle active ones.
func (s *DuelService) RunMaintenance(ctx context.Context) (reaped, expired int, err error) {
	reaped, err = s.Cleanup(ctx)
	if err != nil {
		return 0, 0, err
	}
	expired, err = s.ExpireIdle(ctx)
	return reaped, expired, err
}
