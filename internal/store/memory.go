package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/patente-quiz/backend/internal/models"
)

var errNoEvent = errors.New("update produced no answer event")

// Memory is an in-process Repository. Each learner has its own mutex, so
// writers for different learners never contend beyond the brief map lookup.
type Memory struct {
	mu       sync.RWMutex
	learners map[string]*learnerState
}

type learnerState struct {
	mu     sync.Mutex
	exists bool
	rec    models.ProgressionRecord
	events []models.AnswerEvent
}

func NewMemory() *Memory {
	return &Memory{learners: make(map[string]*learnerState)}
}

func (m *Memory) learner(learnerID string, create bool) *learnerState {
	m.mu.RLock()
	ls, ok := m.learners[learnerID]
	m.mu.RUnlock()
	if ok || !create {
		return ls
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ls, ok = m.learners[learnerID]; ok {
		return ls
	}
	ls = &learnerState{}
	m.learners[learnerID] = ls
	return ls
}

type memTx struct {
	rec    *models.ProgressionRecord
	events []models.AnswerEvent
}

func (t *memTx) Record() *models.ProgressionRecord { return t.rec }

func (t *memTx) AnsweredCorrectly(_ context.Context, questionID string) (bool, error) {
	for _, ev := range t.events {
		if ev.QuestionID == questionID && ev.Correct {
			return true, nil
		}
	}
	return false, nil
}

// ── LedgerRepo ──────────────────────────────────────────

func (m *Memory) Update(ctx context.Context, learnerID string, now time.Time, fn UpdateFunc) (*models.ProgressionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ls := m.learner(learnerID, true)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	rec := ls.rec
	if !ls.exists {
		rec = models.ProgressionRecord{LearnerID: learnerID, CreatedAt: now, UpdatedAt: now}
	}

	ev, err := fn(ctx, &memTx{rec: &rec, events: ls.events})
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, errNoEvent
	}

	ls.rec = rec
	ls.exists = true
	ls.events = append(ls.events, *ev)

	out := rec
	return &out, nil
}

func (m *Memory) Get(_ context.Context, learnerID string) (*models.ProgressionRecord, error) {
	ls := m.learner(learnerID, false)
	if ls == nil {
		return nil, nil
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.exists {
		return nil, nil
	}
	out := ls.rec
	return &out, nil
}

func (m *Memory) Archive(_ context.Context, learnerID string, at time.Time) error {
	ls := m.learner(learnerID, false)
	if ls == nil {
		return nil
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.exists && ls.rec.ArchivedAt == nil {
		t := at
		ls.rec.ArchivedAt = &t
	}
	return nil
}

// ── HistoryRepo ─────────────────────────────────────────

// snapshot copies the learner's events so reads never hold the lock while
// aggregating.
func (m *Memory) snapshot(learnerID string) []models.AnswerEvent {
	ls := m.learner(learnerID, false)
	if ls == nil {
		return nil
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	events := make([]models.AnswerEvent, len(ls.events))
	copy(events, ls.events)
	return events
}

func (m *Memory) Events(_ context.Context, learnerID string, q EventQuery) ([]models.AnswerEvent, error) {
	var out []models.AnswerEvent
	for _, ev := range m.snapshot(learnerID) {
		if ev.Seq > q.AfterSeq {
			out = append(out, ev)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) TopicTallies(_ context.Context, learnerID string) ([]models.TopicTally, error) {
	type key struct{ subject, topic string }
	tallies := make(map[key]*models.TopicTally)
	for _, ev := range m.snapshot(learnerID) {
		k := key{ev.Subject, ev.Topic}
		t, ok := tallies[k]
		if !ok {
			t = &models.TopicTally{Subject: ev.Subject, Topic: ev.Topic}
			tallies[k] = t
		}
		t.Answered++
		if ev.Correct {
			t.Correct++
		}
	}

	out := make([]models.TopicTally, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Topic < out[j].Topic
	})
	return out, nil
}

func (m *Memory) DailyTallies(_ context.Context, learnerID string, from, to time.Time) ([]models.DayTally, error) {
	tallies := make(map[string]*models.DayTally)
	for _, ev := range m.snapshot(learnerID) {
		if ev.AnsweredAt.Before(from) || !ev.AnsweredAt.Before(to) {
			continue
		}
		day := DayKey(ev.AnsweredAt)
		t, ok := tallies[day]
		if !ok {
			t = &models.DayTally{Date: day}
			tallies[day] = t
		}
		t.Answered++
		if ev.Correct {
			t.Correct++
		}
	}

	out := make([]models.DayTally, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Memory) Totals(_ context.Context, learnerID string) (models.HistoryTotals, error) {
	var totals models.HistoryTotals
	for _, ev := range m.snapshot(learnerID) {
		totals.Events++
		if ev.Correct {
			totals.Correct++
		}
		totals.XP += int64(ev.XPAwarded)
		if ev.Seq > totals.MaxSeq {
			totals.MaxSeq = ev.Seq
		}
	}
	return totals, nil
}

func (m *Memory) LearnerIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	states := make(map[string]*learnerState, len(m.learners))
	for id, ls := range m.learners {
		states[id] = ls
	}
	m.mu.RUnlock()

	var ids []string
	for id, ls := range states {
		ls.mu.Lock()
		exists := ls.exists
		ls.mu.Unlock()
		if exists {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
