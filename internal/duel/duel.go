package duel

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Terminal statuses never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

type Duel struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ChallengerID uuid.UUID `db:"challenger_id" json:"challenger_id"`
	QuestionID   uuid.UUID `db:"question_id" json:"question_id"`
	Status       Status    `db:"status" json:"status"`

	// At most one of these is set, and only once the duel has left waiting
	OpponentID      *uuid.UUID `db:"opponent_id" json:"opponent_id,omitempty"`
	OpponentBotTier *int       `db:"opponent_bot_tier" json:"opponent_bot_tier,omitempty"`

	WinnerID      *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
	WinnerBotTier *int       `db:"winner_bot_tier" json:"winner_bot_tier,omitempty"`

	// Rolled once when the bot is assigned. Never sent to clients.
	BotRoll            *float64 `db:"bot_roll" json:"-"`
	BotResponseSeconds *int     `db:"bot_response_seconds" json:"-"`

	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	LastActivityAt time.Time  `db:"last_activity_at" json:"last_activity_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ExpiredAt      *time.Time `db:"expired_at" json:"expired_at,omitempty"`
}

func (d *Duel) Opponent() (Participant, bool) {
	switch {
	case d.OpponentBotTier != nil:
		return Bot(*d.OpponentBotTier), true
	case d.OpponentID != nil:
		return Human(*d.OpponentID), true
	}
	return Participant{}, false
}

func (d *Duel) Winner() (Participant, bool) {
	switch {
	case d.WinnerBotTier != nil:
		return Bot(*d.WinnerBotTier), true
	case d.WinnerID != nil:
		return Human(*d.WinnerID), true
	}
	return Participant{}, false
}

func (d *Duel) HasBotOpponent() bool {
	return d.OpponentBotTier != nil
}

// IsParticipant reports whether userID is the challenger or the human opponent.
func (d *Duel) IsParticipant(userID uuid.UUID) bool {
	if d.ChallengerID == userID {
		return true
	}
	return d.OpponentID != nil && *d.OpponentID == userID
}

// OtherSide returns the side facing userID. The second value is false when
// userID is not in the duel or no opponent has been assigned yet.
func (d *Duel) OtherSide(userID uuid.UUID) (Participant, bool) {
	opponent, ok := d.Opponent()
	if !ok {
		return Participant{}, false
	}
	if d.ChallengerID == userID {
		return opponent, true
	}
	if !opponent.IsBot() && opponent.UserID == userID {
		return Human(d.ChallengerID), true
	}
	return Participant{}, false
}

// HumanIDs lists every human taking part in the duel, challenger first.
func (d *Duel) HumanIDs() []uuid.UUID {
	ids := []uuid.UUID{d.ChallengerID}
	if d.OpponentID != nil {
		ids = append(ids, *d.OpponentID)
	}
	return ids
}

func (d *Duel) BotOutcome() (BotRoll, bool) {
	if d.BotRoll == nil || d.BotResponseSeconds == nil {
		return BotRoll{}, false
	}
	return BotRoll{Roll: *d.BotRoll, ResponseSeconds: *d.BotResponseSeconds}, true
}
