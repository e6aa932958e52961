package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/patente-quiz/backend/internal/models"
)

// Postgres persists progression records and the answer event log. Writes go
// through database/sql transactions; reads are mapped with sqlx.
type Postgres struct {
	db *sql.DB
	x  *sqlx.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, x: sqlx.NewDb(db, "postgres")}
}

const recordColumns = `learner_id, xp, answered_count, correct_count, rank_name,
		        created_at, updated_at, archived_at`

const eventColumns = `id, learner_id, question_id, subject, topic, difficulty,
		        choice, correct, xp_awarded, seq, total_xp, answered_at`

type pgTx struct {
	tx  *sql.Tx
	rec *models.ProgressionRecord
}

func (t *pgTx) Record() *models.ProgressionRecord { return t.rec }

func (t *pgTx) AnsweredCorrectly(ctx context.Context, questionID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(
		    SELECT 1 FROM answer_events
		    WHERE learner_id = $1 AND question_id = $2 AND correct
		)`,
		t.rec.LearnerID, questionID,
	).Scan(&exists)
	if err != nil {
		return false, models.Unavailable("check prior answer", err)
	}
	return exists, nil
}

// ── LedgerRepo ──────────────────────────────────────────

func (p *Postgres) Update(ctx context.Context, learnerID string, now time.Time, fn UpdateFunc) (*models.ProgressionRecord, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.Unavailable("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO progression_records (learner_id, created_at, updated_at)
		 VALUES ($1, $2, $2)
		 ON CONFLICT (learner_id) DO NOTHING`,
		learnerID, now,
	)
	if err != nil {
		return nil, models.Unavailable("upsert record", err)
	}

	// Row lock serializes concurrent submissions for this learner only.
	var rec models.ProgressionRecord
	err = tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+`
		 FROM progression_records WHERE learner_id = $1
		 FOR UPDATE`,
		learnerID,
	).Scan(&rec.LearnerID, &rec.XP, &rec.AnsweredCount, &rec.CorrectCount, &rec.Rank,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ArchivedAt)
	if err != nil {
		return nil, models.Unavailable("lock record", err)
	}

	ev, err := fn(ctx, &pgTx{tx: tx, rec: &rec})
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, errNoEvent
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO answer_events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ev.ID, ev.LearnerID, ev.QuestionID, ev.Subject, ev.Topic, ev.Difficulty,
		ev.Choice, ev.Correct, ev.XPAwarded, ev.Seq, ev.TotalXP, ev.AnsweredAt,
	)
	if err != nil {
		return nil, models.Unavailable("append event", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE progression_records SET
		    xp = $2, answered_count = $3, correct_count = $4,
		    rank_name = $5, updated_at = $6
		 WHERE learner_id = $1`,
		rec.LearnerID, rec.XP, rec.AnsweredCount, rec.CorrectCount, rec.Rank, rec.UpdatedAt,
	)
	if err != nil {
		return nil, models.Unavailable("update record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, models.Unavailable("commit", err)
	}
	return &rec, nil
}

func (p *Postgres) Get(ctx context.Context, learnerID string) (*models.ProgressionRecord, error) {
	var rec models.ProgressionRecord
	err := p.x.GetContext(ctx, &rec,
		`SELECT `+recordColumns+` FROM progression_records WHERE learner_id = $1`,
		learnerID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, models.Unavailable("get record", err)
	}
	return &rec, nil
}

func (p *Postgres) Archive(ctx context.Context, learnerID string, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE progression_records SET archived_at = $2
		 WHERE learner_id = $1 AND archived_at IS NULL`,
		learnerID, at,
	)
	return models.Unavailable("archive record", err)
}

// ── HistoryRepo ─────────────────────────────────────────

func (p *Postgres) Events(ctx context.Context, learnerID string, q EventQuery) ([]models.AnswerEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM answer_events
		 WHERE learner_id = $1 AND seq > $2
		 ORDER BY seq`
	args := []interface{}{learnerID, q.AfterSeq}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var events []models.AnswerEvent
	if err := p.x.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, models.Unavailable("list events", err)
	}
	return events, nil
}

func (p *Postgres) TopicTallies(ctx context.Context, learnerID string) ([]models.TopicTally, error) {
	var tallies []models.TopicTally
	err := p.x.SelectContext(ctx, &tallies,
		`SELECT subject, topic,
		        COUNT(*) AS answered,
		        COUNT(*) FILTER (WHERE correct) AS correct
		 FROM answer_events
		 WHERE learner_id = $1
		 GROUP BY subject, topic
		 ORDER BY subject, topic`,
		learnerID,
	)
	if err != nil {
		return nil, models.Unavailable("topic tallies", err)
	}
	return tallies, nil
}

func (p *Postgres) DailyTallies(ctx context.Context, learnerID string, from, to time.Time) ([]models.DayTally, error) {
	var tallies []models.DayTally
	err := p.x.SelectContext(ctx, &tallies,
		`SELECT to_char((answered_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day,
		        COUNT(*) AS answered,
		        COUNT(*) FILTER (WHERE correct) AS correct
		 FROM answer_events
		 WHERE learner_id = $1 AND answered_at >= $2 AND answered_at < $3
		 GROUP BY day
		 ORDER BY day`,
		learnerID, from, to,
	)
	if err != nil {
		return nil, models.Unavailable("daily tallies", err)
	}
	return tallies, nil
}

func (p *Postgres) Totals(ctx context.Context, learnerID string) (models.HistoryTotals, error) {
	var totals models.HistoryTotals
	err := p.x.GetContext(ctx, &totals,
		`SELECT COUNT(*) AS events,
		        COUNT(*) FILTER (WHERE correct) AS correct,
		        COALESCE(SUM(xp_awarded), 0) AS xp,
		        COALESCE(MAX(seq), 0) AS max_seq
		 FROM answer_events
		 WHERE learner_id = $1`,
		learnerID,
	)
	if err != nil {
		return models.HistoryTotals{}, models.Unavailable("history totals", err)
	}
	return totals, nil
}

func (p *Postgres) LearnerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := p.x.SelectContext(ctx, &ids, `SELECT learner_id FROM progression_records ORDER BY learner_id`); err != nil {
		return nil, models.Unavailable("list learners", err)
	}
	return ids, nil
}
