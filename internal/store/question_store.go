package store

import (
	"context"

	"github.com/AdamBeresnev/code-duels/internal/question"
	"github.com/jmoiron/sqlx"
)

type QuestionStore struct {
	db *sqlx.DB
}

const (
	getQuestionQuery    = "SELECT * FROM questions WHERE id = ?"
	createQuestionQuery = `
		INSERT INTO questions (id, question_type, question_text, correct_answer, difficulty, xp_reward)
		VALUES (:id, :question_type, :question_text, :correct_answer, :difficulty, :xp_reward)
	`
)

func NewQuestionStore(db *sqlx.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) GetQuestion(ctx context.Context, id interface{}) (*question.Question, error) {
	var q question.Question
	err := s.db.GetContext(ctx, &q, getQuestionQuery, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q *question.Question) error {
	_, err := s.db.NamedExecContext(ctx, createQuestionQuery, q)
	return err
}
