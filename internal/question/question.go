package question

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeMultipleChoice Type = "mcq"
	TypeFillBlank      Type = "fill_blank"
	TypeFlashcard      Type = "flashcard"
	TypeCode           Type = "code"
)

type Question struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Type          Type      `db:"question_type" json:"type"`
	Text          string    `db:"question_text" json:"text"`
	CorrectAnswer string    `db:"correct_answer" json:"-"`
	Difficulty    int       `db:"difficulty" json:"difficulty"`
	XPReward      int       `db:"xp_reward" json:"xp_reward"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Only free-form code questions can be dueled on.
func (q *Question) DuelEligible() bool {
	return q.Type == TypeCode
}
