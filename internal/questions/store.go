package questions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/patente-quiz/backend/internal/models"
)

// Store reads questions from Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	var q models.Question
	var choices pq.StringArray
	err := s.db.QueryRowContext(ctx,
		`SELECT id, answer_key, choices, subject, topic, difficulty
		 FROM questions WHERE id = $1`,
		questionID,
	).Scan(&q.ID, &q.AnswerKey, &choices, &q.Subject, &q.Topic, &q.Difficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %q: %w", questionID, models.ErrUnknownQuestion)
	}
	if err != nil {
		return nil, models.Unavailable("get question", err)
	}
	q.Choices = []string(choices)
	return &q, nil
}

// Import upserts every catalog question in one transaction.
func (s *Store) Import(ctx context.Context, c *Catalog) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, models.Unavailable("begin import", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions (id, answer_key, choices, subject, topic, difficulty)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     answer_key = EXCLUDED.answer_key,
		     choices = EXCLUDED.choices,
		     subject = EXCLUDED.subject,
		     topic = EXCLUDED.topic,
		     difficulty = EXCLUDED.difficulty,
		     updated_at = NOW()`)
	if err != nil {
		return 0, models.Unavailable("prepare import", err)
	}
	defer stmt.Close()

	n := 0
	for _, q := range c.All() {
		choices := q.Choices
		if choices == nil {
			choices = []string{}
		}
		if _, err := stmt.ExecContext(ctx, q.ID, q.AnswerKey, pq.Array(choices), q.Subject, q.Topic, q.Difficulty); err != nil {
			return n, fmt.Errorf("import question %q: %w", q.ID, models.Unavailable("import", err))
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, models.Unavailable("commit import", err)
	}
	return n, nil
}
