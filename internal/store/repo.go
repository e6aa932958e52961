package store

import (
	"context"
	"time"

	"github.com/patente-quiz/backend/internal/models"
)

// LearnerTx is the view of one learner's state inside a ledger transaction.
// Record is mutated in place by the caller and persisted on commit.
type LearnerTx interface {
	Record() *models.ProgressionRecord

	// AnsweredCorrectly reports whether the learner already has a correct
	// answer event for questionID.
	AnsweredCorrectly(ctx context.Context, questionID string) (bool, error)
}

// UpdateFunc mutates the record and returns the event to append alongside it.
// Returning an error aborts the transaction with no state change.
type UpdateFunc func(ctx context.Context, tx LearnerTx) (*models.AnswerEvent, error)

// LedgerRepo owns progression records.
type LedgerRepo interface {
	// Update loads or lazily creates the learner's record, runs fn while
	// holding the learner's lock, and persists the record together with the
	// returned event in one transaction.
	Update(ctx context.Context, learnerID string, now time.Time, fn UpdateFunc) (*models.ProgressionRecord, error)

	// Get returns the learner's record, or nil if none exists.
	Get(ctx context.Context, learnerID string) (*models.ProgressionRecord, error)

	// Archive soft-archives the learner. It is a no-op for unknown learners.
	Archive(ctx context.Context, learnerID string, at time.Time) error
}

// EventQuery selects a page of a learner's events in seq order.
type EventQuery struct {
	AfterSeq int64 // seq > AfterSeq
	Limit    int   // oldest Limit matches; 0 = all
}

// HistoryRepo provides read access to the append-only answer event log.
type HistoryRepo interface {
	// Events returns matching events in ascending seq order.
	Events(ctx context.Context, learnerID string, q EventQuery) ([]models.AnswerEvent, error)

	// TopicTallies groups the learner's events by subject and topic.
	TopicTallies(ctx context.Context, learnerID string) ([]models.TopicTally, error)

	// DailyTallies groups events with from <= answered_at < to by UTC day.
	DailyTallies(ctx context.Context, learnerID string, from, to time.Time) ([]models.DayTally, error)

	// Totals summarises the learner's whole log.
	Totals(ctx context.Context, learnerID string) (models.HistoryTotals, error)

	// LearnerIDs lists every learner with a progression record.
	LearnerIDs(ctx context.Context) ([]string, error)
}

// Repository is the full persistence surface used by the server.
type Repository interface {
	LedgerRepo
	HistoryRepo
}

// DayKey formats t as its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
