package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patente-quiz/backend/internal/models"
)

var base = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func record(subject, topic, questionID string, correct bool, at time.Time) UpdateFunc {
	return func(_ context.Context, tx LearnerTx) (*models.AnswerEvent, error) {
		rec := tx.Record()
		rec.AnsweredCount++
		xp := 0
		if correct {
			rec.CorrectCount++
			xp = 10
		}
		rec.XP += int64(xp)
		rec.UpdatedAt = at
		return &models.AnswerEvent{
			QuestionID: questionID,
			Subject:    subject,
			Topic:      topic,
			Correct:    correct,
			XPAwarded:  xp,
			Seq:        rec.AnsweredCount,
			TotalXP:    rec.XP,
			AnsweredAt: at,
		}, nil
	}
}

func TestMemoryUpdateCreatesRecordLazily(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec, err := m.Get(ctx, "l")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = m.Update(ctx, "l", base, record("S", "T", "q1", true, base))
	require.NoError(t, err)
	assert.Equal(t, "l", rec.LearnerID)
	assert.Equal(t, base, rec.CreatedAt)
	assert.Equal(t, int64(10), rec.XP)

	ids, err := m.LearnerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"l"}, ids)
}

func TestMemoryUpdateErrorPersistsNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := m.Update(ctx, "l", base, func(_ context.Context, tx LearnerTx) (*models.AnswerEvent, error) {
		tx.Record().XP = 999
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := m.Get(ctx, "l")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = m.Update(ctx, "l", base, func(context.Context, LearnerTx) (*models.AnswerEvent, error) {
		return nil, nil
	})
	assert.Error(t, err)

	ids, err := m.LearnerIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryAnsweredCorrectly(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Update(ctx, "l", base, record("S", "T", "q1", false, base))
	require.NoError(t, err)
	_, err = m.Update(ctx, "l", base, record("S", "T", "q2", true, base))
	require.NoError(t, err)

	_, err = m.Update(ctx, "l", base, func(ctx context.Context, tx LearnerTx) (*models.AnswerEvent, error) {
		q1, err := tx.AnsweredCorrectly(ctx, "q1")
		require.NoError(t, err)
		q2, err := tx.AnsweredCorrectly(ctx, "q2")
		require.NoError(t, err)
		assert.False(t, q1)
		assert.True(t, q2)
		return record("S", "T", "q3", false, base)(ctx, tx)
	})
	require.NoError(t, err)
}

func TestMemoryEventsQuery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		_, err := m.Update(ctx, "l", at, record("S", "T", "q", true, at))
		require.NoError(t, err)
	}

	all, err := m.Events(ctx, "l", EventQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	after, err := m.Events(ctx, "l", EventQuery{AfterSeq: 3})
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, int64(4), after[0].Seq)

	oldest, err := m.Events(ctx, "l", EventQuery{AfterSeq: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, int64(2), oldest[0].Seq)
	assert.Equal(t, int64(3), oldest[1].Seq)

	tail, err := m.Events(ctx, "l", EventQuery{AfterSeq: 4, Limit: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, int64(5), tail[0].Seq)
}

func TestMemoryTallies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	day1 := base
	day2 := base.Add(24 * time.Hour)

	steps := []UpdateFunc{
		record("Signs", "Danger", "q1", true, day1),
		record("Signs", "Danger", "q2", false, day1),
		record("Speed", "Limits", "q3", true, day2),
		record("Signs", "Priority", "q4", true, day2),
	}
	for _, fn := range steps {
		_, err := m.Update(ctx, "l", base, fn)
		require.NoError(t, err)
	}

	topics, err := m.TopicTallies(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []models.TopicTally{
		{Subject: "Signs", Topic: "Danger", Answered: 2, Correct: 1},
		{Subject: "Signs", Topic: "Priority", Answered: 1, Correct: 1},
		{Subject: "Speed", Topic: "Limits", Answered: 1, Correct: 1},
	}, topics)

	days, err := m.DailyTallies(ctx, "l", day1, day2)
	require.NoError(t, err)
	assert.Equal(t, []models.DayTally{{Date: "2026-02-01", Answered: 2, Correct: 1}}, days)

	totals, err := m.Totals(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, models.HistoryTotals{Events: 4, Correct: 3, XP: 30, MaxSeq: 4}, totals)
}

func TestMemoryArchive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Archive(ctx, "ghost", base))

	_, err := m.Update(ctx, "l", base, record("S", "T", "q", true, base))
	require.NoError(t, err)
	require.NoError(t, m.Archive(ctx, "l", base.Add(time.Hour)))
	require.NoError(t, m.Archive(ctx, "l", base.Add(2*time.Hour)))

	rec, err := m.Get(ctx, "l")
	require.NoError(t, err)
	require.NotNil(t, rec.ArchivedAt)
	assert.Equal(t, base.Add(time.Hour), *rec.ArchivedAt)
}

func TestDayKey(t *testing.T) {
	late := time.Date(2026, 2, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*60*60))
	assert.Equal(t, "2026-02-02", DayKey(late))
}
