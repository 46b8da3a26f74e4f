package duel

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one judged submission. Rows are append only.
type Attempt struct {
	ID             int64     `db:"id" json:"id"`
	DuelID         uuid.UUID `db:"duel_id" json:"duel_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	QuestionID     uuid.UUID `db:"question_id" json:"question_id"`
	Code           string    `db:"code" json:"code"`
	Language       string    `db:"language" json:"language"`
	IsCorrect      bool      `db:"is_correct" json:"is_correct"`
	Output         string    `db:"output" json:"output"`
	Error          *string   `db:"error" json:"error,omitempty"`
	ElapsedSeconds int       `db:"elapsed_seconds" json:"elapsed_seconds"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Outcome is what a submitter gets back: their own verdict plus the duel
// result if it is decided.
type Outcome struct {
	DuelID        uuid.UUID    `json:"duel_id"`
	Correct       bool         `json:"correct"`
	Output        string       `json:"output"`
	Error         string       `json:"error,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
	Status        Status       `json:"status"`
	Winner        *Participant `json:"winner,omitempty"`
	WinnerName    string       `json:"winner_name,omitempty"`
	XPAwarded     int          `json:"xp_awarded"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

type Summary struct {
	ID             uuid.UUID    `json:"id"`
	ChallengerID   uuid.UUID    `json:"challenger_id"`
	ChallengerName string       `json:"challenger_name"`
	Opponent       *Participant `json:"opponent,omitempty"`
	OpponentName   string       `json:"opponent_name,omitempty"`
	Winner         *Participant `json:"winner,omitempty"`
	WinnerName     string       `json:"winner_name,omitempty"`
	Status         Status       `json:"status"`
	QuestionID     uuid.UUID    `json:"question_id"`
	QuestionText   string       `json:"question_text"`
	CreatedAt      time.Time    `json:"created_at"`
	IsBotOpponent  bool         `json:"is_bot_opponent"`
}
