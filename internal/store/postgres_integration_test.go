//go:build integration

package store

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patente-quiz/backend/internal/database"
	"github.com/patente-quiz/backend/internal/models"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/store/
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	require.NoError(t, database.Migrate(db))
	return NewPostgres(db)
}

// The answer log rejects deletes, so every test works on a fresh learner.
func newLearnerID() string {
	return "it-" + uuid.NewString()
}

func pgRecord(subject, topic, questionID string, correct bool, at time.Time) UpdateFunc {
	fn := record(subject, topic, questionID, correct, at)
	return func(ctx context.Context, tx LearnerTx) (*models.AnswerEvent, error) {
		ev, err := fn(ctx, tx)
		if ev != nil {
			ev.ID = uuid.NewString()
			ev.LearnerID = tx.Record().LearnerID
		}
		return ev, err
	}
}

func TestPostgresUpdateCreatesRecordLazily(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	rec, err := p.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = p.Update(ctx, id, base, pgRecord("S", "T", "q1", true, base))
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.XP)
	assert.Equal(t, int64(1), rec.AnsweredCount)

	// Second update hits ON CONFLICT and keeps the original created_at.
	later := base.Add(time.Hour)
	_, err = p.Update(ctx, id, later, pgRecord("S", "T", "q2", false, later))
	require.NoError(t, err)

	stored, err := p.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.CreatedAt.Equal(base))
	assert.True(t, stored.UpdatedAt.Equal(later))
	assert.Equal(t, int64(2), stored.AnsweredCount)
	assert.Equal(t, int64(1), stored.CorrectCount)

	ids, err := p.LearnerIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)
}

func TestPostgresUpdateErrorPersistsNothing(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	_, err := p.Update(ctx, id, base, pgRecord("S", "T", "q1", true, base))
	require.NoError(t, err)

	_, err = p.Update(ctx, id, base, func(_ context.Context, tx LearnerTx) (*models.AnswerEvent, error) {
		tx.Record().XP = 999
		return nil, models.ErrInvalidChoice
	})
	assert.ErrorIs(t, err, models.ErrInvalidChoice)

	rec, err := p.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.XP)
}

func TestPostgresConcurrentUpdatesSerialize(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	const workers, perWorker = 8, 5
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := p.Update(ctx, id, base, pgRecord("S", "T", "q", true, base))
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := p.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), rec.AnsweredCount)
	assert.Equal(t, int64(workers*perWorker*10), rec.XP)

	events, err := p.Events(ctx, id, EventQuery{})
	require.NoError(t, err)
	require.Len(t, events, workers*perWorker)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, int64(i+1)*10, ev.TotalXP)
	}
}

func TestPostgresAnsweredCorrectly(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	_, err := p.Update(ctx, id, base, pgRecord("S", "T", "q1", true, base))
	require.NoError(t, err)

	var seen, unseen bool
	_, err = p.Update(ctx, id, base, func(ctx context.Context, tx LearnerTx) (*models.AnswerEvent, error) {
		var err error
		if seen, err = tx.AnsweredCorrectly(ctx, "q1"); err != nil {
			return nil, err
		}
		if unseen, err = tx.AnsweredCorrectly(ctx, "q2"); err != nil {
			return nil, err
		}
		return pgRecord("S", "T", "q2", false, base)(ctx, tx)
	})
	require.NoError(t, err)
	assert.True(t, seen)
	assert.False(t, unseen)
}

func TestPostgresEventsQuery(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := p.Update(ctx, id, at, pgRecord("S", "T", "q", i%2 == 0, at))
		require.NoError(t, err)
	}

	after, err := p.Events(ctx, id, EventQuery{AfterSeq: 3})
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, int64(4), after[0].Seq)

	page, err := p.Events(ctx, id, EventQuery{AfterSeq: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].Seq)
	assert.Equal(t, int64(3), page[1].Seq)
	assert.Equal(t, id, page[0].LearnerID)
}

func TestPostgresTallies(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	nextDay := base.Add(24 * time.Hour)
	steps := []struct {
		subject, topic string
		correct        bool
		at             time.Time
	}{
		{"Signs", "Danger", true, base},
		{"Signs", "Danger", false, base},
		{"Signs", "Priority", true, nextDay},
		{"Speed", "Limits", true, nextDay},
	}
	for _, s := range steps {
		_, err := p.Update(ctx, id, s.at, pgRecord(s.subject, s.topic, "q", s.correct, s.at))
		require.NoError(t, err)
	}

	topics, err := p.TopicTallies(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []models.TopicTally{
		{Subject: "Signs", Topic: "Danger", Answered: 2, Correct: 1},
		{Subject: "Signs", Topic: "Priority", Answered: 1, Correct: 1},
		{Subject: "Speed", Topic: "Limits", Answered: 1, Correct: 1},
	}, topics)

	days, err := p.DailyTallies(ctx, id, base.Add(-24*time.Hour), base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []models.DayTally{
		{Date: "2026-02-01", Answered: 2, Correct: 1},
		{Date: "2026-02-02", Answered: 2, Correct: 2},
	}, days)

	// Upper bound is exclusive.
	firstDay, err := p.DailyTallies(ctx, id, base, nextDay)
	require.NoError(t, err)
	assert.Len(t, firstDay, 1)

	totals, err := p.Totals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.HistoryTotals{Events: 4, Correct: 3, XP: 30, MaxSeq: 4}, totals)
}

func TestPostgresArchive(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	id := newLearnerID()

	_, err := p.Update(ctx, id, base, pgRecord("S", "T", "q", true, base))
	require.NoError(t, err)

	require.NoError(t, p.Archive(ctx, id, base.Add(time.Hour)))
	require.NoError(t, p.Archive(ctx, id, base.Add(2*time.Hour)))
	require.NoError(t, p.Archive(ctx, newLearnerID(), base))

	rec, err := p.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec.ArchivedAt)
	assert.True(t, rec.ArchivedAt.Equal(base.Add(time.Hour)))
}
