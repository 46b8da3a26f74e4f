package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/code-duels/internal/duel"
	"github.com/AdamBeresnev/code-duels/internal/judge"
	"github.com/AdamBeresnev/code-duels/internal/question"
	"github.com/AdamBeresnev/code-duels/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultMatchGracePeriod = 30 * time.Second
	DefaultWaitingTTL       = 5 * time.Minute
	DefaultActiveIdleTTL    = 30 * time.Minute

	// Winners get the question reward plus this share of it
	duelBonusPercent = 50

	defaultAvailableLimit = 10
	defaultHistoryLimit   = 20
	maxListLimit          = 100
)

// Event types pushed to duel watchers
const (
	EventMatched   = "duel_matched"
	EventJudged    = "submission_judged"
	EventCompleted = "duel_completed"
	EventExpired   = "duel_expired"
)

type QuestionLookup interface {
	GetQuestion(ctx context.Context, id interface{}) (*question.Question, error)
}

type Ledger interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) (bool, error)
}

type Notifier interface {
	Publish(duelID uuid.UUID, payload any)
}

type DuelEvent struct {
	Type   string            `json:"type"`
	Duel   *duel.Duel        `json:"duel"`
	Winner *duel.Participant `json:"winner,omitempty"`
}

type Timing struct {
	MatchGracePeriod time.Duration
	WaitingTTL       time.Duration
	ActiveIdleTTL    time.Duration
}

type DuelService struct {
	db        *sqlx.DB
	store     *store.DuelStore
	questions QuestionLookup
	users     *store.UserStore
	judge     judge.Judge
	ledger    Ledger
	notifier  Notifier
	rollBot   func(tier int) duel.BotRoll
	now       func() time.Time
	timing    Timing
}

type DuelOption func(*DuelService)

func WithClock(now func() time.Time) DuelOption {
	return func(s *DuelService) { s.now = now }
}

func WithBotRoller(roll func(tier int) duel.BotRoll) DuelOption {
	return func(s *DuelService) { s.rollBot = roll }
}

func WithNotifier(n Notifier) DuelOption {
	return func(s *DuelService) { s.notifier = n }
}

func WithTiming(t Timing) DuelOption {
	return func(s *DuelService) {
		if t.MatchGracePeriod > 0 {
			s.timing.MatchGracePeriod = t.MatchGracePeriod
		}
		if t.WaitingTTL > 0 {
			s.timing.WaitingTTL = t.WaitingTTL
		}
		if t.ActiveIdleTTL > 0 {
			s.timing.ActiveIdleTTL = t.ActiveIdleTTL
		}
	}
}

func NewDuelService(db *sqlx.DB, store *store.DuelStore, questions QuestionLookup, users *store.UserStore, j judge.Judge, ledger Ledger, opts ...DuelOption) *DuelService {
	s := &DuelService{
		db:        db,
		store:     store,
		questions: questions,
		users:     users,
		judge:     j,
		ledger:    ledger,
		rollBot:   duel.RollBot,
		now:       time.Now,
		timing: Timing{
			MatchGracePeriod: DefaultMatchGracePeriod,
			WaitingTTL:       DefaultWaitingTTL,
			ActiveIdleTTL:    DefaultActiveIdleTTL,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DuelService) CreateDuel(ctx context.Context, questionID, challengerID uuid.UUID) (*duel.Duel, error) {
	q, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !q.DuelEligible() {
		return nil, ErrUnsupportedQuestionType
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	d := &duel.Duel{
		ID:             uuid.New(),
		ChallengerID:   challengerID,
		QuestionID:     q.ID,
		Status:         duel.StatusWaiting,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := s.store.CreateDuel(ctx, tx, d); err != nil {
		return nil, fmt.Errorf("failed to create duel: %w", err)
	}
	if err := s.store.ClaimSlotTx(ctx, tx, challengerID, d.ID); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return nil, ErrAlreadyInDuel
		}
		return nil, fmt.Errorf("failed to claim duel slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Info("duel created", "duel_id", d.ID, "user_id", challengerID, "question_id", q.ID)

	// Matching is best effort here; the scheduler retries later.
	if _, err := s.TryMatch(ctx, d.ID); err != nil {
		slog.Warn("matchmaking failed", "duel_id", d.ID, "error", err)
	}

	// The duel may have been matched away into a peer's duel meanwhile.
	if current, err := s.currentDuel(ctx, challengerID); err == nil && current != nil {
		return current, nil
	}
	return d, nil
}

func (s *DuelService) JoinDuel(ctx context.Context, duelID, joinerID uuid.UUID) (*duel.Duel, error) {
	d, err := s.getDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	if d.Status != duel.StatusWaiting {
		return nil, ErrDuelNotJoinable
	}
	if d.ChallengerID == joinerID {
		return nil, ErrCannotJoinOwnDuel
	}
	if _, ok := d.Opponent(); ok {
		return nil, ErrDuelNotJoinable
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ok, err := s.store.ActivateWithPeerTx(ctx, tx, d.ID, joinerID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to join duel: %w", err)
	}
	if !ok {
		return nil, ErrDuelNotJoinable
	}
	if err := s.store.ClaimSlotTx(ctx, tx, joinerID, d.ID); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return nil, ErrAlreadyInDuel
		}
		return nil, fmt.Errorf("failed to claim duel slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Info("duel joined", "duel_id", d.ID, "user_id", joinerID)

	joined, err := s.store.GetDuel(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	s.publish(EventMatched, joined, nil)
	return joined, nil
}

type DuelDetails struct {
	Duel           *duel.Duel         `json:"duel"`
	ChallengerName string             `json:"challenger_name"`
	Opponent       *duel.Participant  `json:"opponent,omitempty"`
	OpponentName   string             `json:"opponent_name,omitempty"`
	Winner         *duel.Participant  `json:"winner,omitempty"`
	WinnerName     string             `json:"winner_name,omitempty"`
	Question       *question.Question `json:"question"`
	IsBotOpponent  bool               `json:"is_bot_opponent"`
}

// GetDuel returns the duel with display names resolved. Only its
// participants may look at it.
func (s *DuelService) GetDuel(ctx context.Context, duelID, viewerID uuid.UUID) (*DuelDetails, error) {
	d, err := s.getDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	if !d.IsParticipant(viewerID) {
		return nil, ErrAccessDenied
	}

	q, err := s.getQuestion(ctx, d.QuestionID)
	if err != nil {
		return nil, err
	}

	details := &DuelDetails{
		Duel:           d,
		ChallengerName: s.DisplayName(ctx, duel.Human(d.ChallengerID)),
		Question:       q,
		IsBotOpponent:  d.HasBotOpponent(),
	}
	if opponent, ok := d.Opponent(); ok {
		details.Opponent = &opponent
		details.OpponentName = s.DisplayName(ctx, opponent)
	}
	if winner, ok := d.Winner(); ok {
		details.Winner = &winner
		details.WinnerName = s.DisplayName(ctx, winner)
	}
	return details, nil
}

// ListAttempts returns the viewer's own attempts in a duel, oldest first.
// The opponent's code is never exposed.
func (s *DuelService) ListAttempts(ctx context.Context, duelID, viewerID uuid.UUID) ([]duel.Attempt, error) {
	d, err := s.getDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	if !d.IsParticipant(viewerID) {
		return nil, ErrAccessDenied
	}

	all, err := s.store.ListAttempts(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	attempts := make([]duel.Attempt, 0, len(all))
	for _, a := range all {
		if a.UserID == viewerID {
			attempts = append(attempts, a)
		}
	}
	return attempts, nil
}

// ListAvailableDuels lists waiting duels the viewer could join, newest first.
func (s *DuelService) ListAvailableDuels(ctx context.Context, viewerID uuid.UUID, limit int) ([]duel.Summary, error) {
	duels, err := s.store.ListAvailable(ctx, viewerID, clampLimit(limit, defaultAvailableLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list available duels: %w", err)
	}
	return s.summarize(ctx, duels)
}

func (s *DuelService) ListDuelHistory(ctx context.Context, userID uuid.UUID, limit int) ([]duel.Summary, error) {
	duels, err := s.store.ListByParticipant(ctx, userID, clampLimit(limit, defaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list duel history: %w", err)
	}
	return s.summarize(ctx, duels)
}

// DisplayName resolves a participant to a name. Bots use their tier name.
func (s *DuelService) DisplayName(ctx context.Context, p duel.Participant) string {
	if p.IsBot() {
		return duel.ProfileFor(p.BotTier).Name
	}
	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return "Unknown"
	}
	return u.Username
}

func (s *DuelService) summarize(ctx context.Context, duels []duel.Duel) ([]duel.Summary, error) {
	ids := make([]uuid.UUID, 0, len(duels)*2)
	for i := range duels {
		ids = append(ids, duels[i].HumanIDs()...)
	}
	names, err := s.users.GetUsernames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}
	nameOf := func(p duel.Participant) string {
		if p.IsBot() {
			return duel.ProfileFor(p.BotTier).Name
		}
		if name, ok := names[p.UserID]; ok {
			return name
		}
		return "Unknown"
	}

	questionTexts := make(map[uuid.UUID]string)
	summaries := make([]duel.Summary, 0, len(duels))
	for i := range duels {
		d := &duels[i]

		text, ok := questionTexts[d.QuestionID]
		if !ok {
			text = "Unknown"
			if q, err := s.questions.GetQuestion(ctx, d.QuestionID); err == nil {
				text = q.Text
			}
			questionTexts[d.QuestionID] = text
		}

		summary := duel.Summary{
			ID:             d.ID,
			ChallengerID:   d.ChallengerID,
			ChallengerName: nameOf(duel.Human(d.ChallengerID)),
			Status:         d.Status,
			QuestionID:     d.QuestionID,
			QuestionText:   text,
			CreatedAt:      d.CreatedAt,
			IsBotOpponent:  d.HasBotOpponent(),
		}
		if opponent, ok := d.Opponent(); ok {
			summary.Opponent = &opponent
			summary.OpponentName = nameOf(opponent)
		}
		if winner, ok := d.Winner(); ok {
			summary.Winner = &winner
			summary.WinnerName = nameOf(winner)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *DuelService) currentDuel(ctx context.Context, userID uuid.UUID) (*duel.Duel, error) {
	duelID, err := s.store.SlotHolder(ctx, userID)
	if err != nil || duelID == nil {
		return nil, err
	}
	return s.store.GetDuel(ctx, *duelID)
}

func (s *DuelService) getDuel(ctx context.Context, id uuid.UUID) (*duel.Duel, error) {
	d, err := s.store.GetDuel(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duel: %w", err)
	}
	return d, nil
}

func (s *DuelService) getQuestion(ctx context.Context, id uuid.UUID) (*question.Question, error) {
	q, err := s.questions.GetQuestion(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

func (s *DuelService) publish(eventType string, d *duel.Duel, winner *duel.Participant) {
	if s.notifier == nil || d == nil {
		return
	}
	s.notifier.Publish(d.ID, DuelEvent{Type: eventType, Duel: d, Winner: winner})
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxListLimit)
}
