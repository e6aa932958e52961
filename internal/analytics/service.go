package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/patente-quiz/backend/internal/gamification"
	"github.com/patente-quiz/backend/internal/models"
	"github.com/patente-quiz/backend/internal/store"
)

const (
	OrderAnswered = "answered"
	OrderAccuracy = "accuracy"

	DefaultMinSamples = 5
	DefaultScanLimit  = 200
	TrendDays         = 7
)

// Study tip keys.
const (
	TipRevisitTheory       = "revisit_theory"
	TipPracticeTopic       = "practice_topic"
	TipKeepPracticing      = "keep_practicing"
	TipAnswerMoreQuestions = "answer_more_questions"
)

var ErrUnknownOrder = errors.New("unknown order")

// ProgressReader supplies the ledger's view of a learner.
type ProgressReader interface {
	Progress(ctx context.Context, learnerID string) (*models.ProgressResponse, error)
}

type Options struct {
	HardestMinSamples     int
	NotificationScanLimit int
}

// Service derives read-only views from the answer event log. It keeps no
// state of its own, so repeated calls over an unchanged log agree exactly.
type Service struct {
	history    store.HistoryRepo
	ledger     store.LedgerRepo
	progress   ProgressReader
	ranks      *gamification.RankTable
	minSamples int
	scanLimit  int
}

func NewService(repo store.Repository, progress ProgressReader, ranks *gamification.RankTable, opts Options) *Service {
	if opts.HardestMinSamples <= 0 {
		opts.HardestMinSamples = DefaultMinSamples
	}
	if opts.NotificationScanLimit <= 0 {
		opts.NotificationScanLimit = DefaultScanLimit
	}
	return &Service{
		history:    repo,
		ledger:     repo,
		progress:   progress,
		ranks:      ranks,
		minSamples: opts.HardestMinSamples,
		scanLimit:  opts.NotificationScanLimit,
	}
}

// ── Accuracy ────────────────────────────────────────────

// SubjectAccuracy groups the learner's answers by subject and topic.
// OrderAnswered (the default) lists the most practiced topics first;
// OrderAccuracy lists the best-scoring topics first.
func (s *Service) SubjectAccuracy(ctx context.Context, learnerID, order string) ([]models.TopicAccuracy, error) {
	if order == "" {
		order = OrderAnswered
	}
	if order != OrderAnswered && order != OrderAccuracy {
		return nil, fmt.Errorf("%w %q", ErrUnknownOrder, order)
	}

	tallies, err := s.history.TopicTallies(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if order == OrderAccuracy {
			if c := compareAccuracy(a, b); c != 0 {
				return c > 0
			}
		}
		if a.Answered != b.Answered {
			return a.Answered > b.Answered
		}
		return topicLess(a, b)
	})

	out := make([]models.TopicAccuracy, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, models.TopicAccuracy{
			Subject:     t.Subject,
			Topic:       t.Topic,
			Answered:    t.Answered,
			Correct:     t.Correct,
			AccuracyPct: accuracyPct(t.Correct, t.Answered),
		})
	}
	return out, nil
}

// HardestTopics lists topics with at least minSamples answers, weakest
// first. Ties go to the topic with more answers. minSamples <= 0 uses the
// configured default.
func (s *Service) HardestTopics(ctx context.Context, learnerID string, minSamples int) ([]models.HardTopic, error) {
	if minSamples <= 0 {
		minSamples = s.minSamples
	}

	tallies, err := s.history.TopicTallies(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	eligible := tallies[:0]
	for _, t := range tallies {
		if t.Answered >= int64(minSamples) {
			eligible = append(eligible, t)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if c := compareAccuracy(a, b); c != 0 {
			return c < 0
		}
		if a.Answered != b.Answered {
			return a.Answered > b.Answered
		}
		return topicLess(a, b)
	})

	out := make([]models.HardTopic, 0, len(eligible))
	for _, t := range eligible {
		out = append(out, models.HardTopic{
			Subject:     t.Subject,
			Topic:       t.Topic,
			AccuracyPct: accuracyPct(t.Correct, t.Answered),
			Answered:    t.Answered,
		})
	}
	return out, nil
}

// ── Trend ───────────────────────────────────────────────

// SevenDayTrend returns one entry per UTC day for the seven days ending on
// now's day, oldest first. Days without answers are zero.
func (s *Service) SevenDayTrend(ctx context.Context, learnerID string, now time.Time) ([]models.DailyProgress, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(TrendDays - 1))
	to := today.AddDate(0, 0, 1)

	tallies, err := s.history.DailyTallies(ctx, learnerID, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]models.DayTally, len(tallies))
	for _, t := range tallies {
		byDay[t.Date] = t
	}

	trend := make([]models.DailyProgress, TrendDays)
	for i := range trend {
		day := store.DayKey(from.AddDate(0, 0, i))
		t := byDay[day]
		trend[i] = models.DailyProgress{Date: day, Answered: t.Answered, Correct: t.Correct}
	}
	return trend, nil
}

// ── Study Tip ───────────────────────────────────────────

func (s *Service) StudyTip(ctx context.Context, learnerID string) (models.StudyTip, error) {
	hardest, err := s.HardestTopics(ctx, learnerID, 0)
	if err != nil {
		return models.StudyTip{}, err
	}
	return tipFor(hardest), nil
}

// tipFor maps the weakest qualifying topic to a recommendation key.
func tipFor(hardest []models.HardTopic) models.StudyTip {
	if len(hardest) == 0 {
		return models.StudyTip{Key: TipAnswerMoreQuestions}
	}
	h := hardest[0]
	tip := models.StudyTip{Subject: h.Subject, Topic: h.Topic}
	switch {
	case h.AccuracyPct < 50:
		tip.Key = TipRevisitTheory
	case h.AccuracyPct < 75:
		tip.Key = TipPracticeTopic
	default:
		tip.Key = TipKeepPracticing
	}
	return tip
}

// ── Notifications ───────────────────────────────────────

// Notifications replays the learner's events with seq > afterSeq, at most
// the scan limit of them oldest first, and reports every rank promotion and
// milestone they crossed, in event order. Acknowledgement is the caller's
// business: passing the returned NextSeq as afterSeq pages forward without
// skipping or repeating anything.
func (s *Service) Notifications(ctx context.Context, learnerID string, afterSeq int64) (*models.NotificationsResponse, error) {
	if afterSeq < 0 {
		afterSeq = 0
	}

	// Read the record before the log so a concurrent submission can only
	// make the log look newer, never older.
	rec, err := s.ledger.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	// One extra row tells whether the page stops short of the log's end.
	events, err := s.history.Events(ctx, learnerID, store.EventQuery{AfterSeq: afterSeq, Limit: s.scanLimit + 1})
	if err != nil {
		return nil, err
	}
	truncated := len(events) > s.scanLimit
	if truncated {
		events = events[:s.scanLimit]
	}

	if err := checkConsistency(learnerID, rec, afterSeq, events, truncated); err != nil {
		log.Printf("[analytics] INTEGRITY ALARM: %v", err)
		return nil, err
	}

	resp := &models.NotificationsResponse{
		Notifications: []models.Notification{},
		AfterSeq:      afterSeq,
		NextSeq:       afterSeq,
		Truncated:     truncated,
	}
	for _, ev := range events {
		resp.Notifications = append(resp.Notifications, s.notificationsFor(ev)...)
		resp.NextSeq = ev.Seq
	}
	return resp, nil
}

// notificationsFor lists what one event crossed, ordered by kind.
func (s *Service) notificationsFor(ev models.AnswerEvent) []models.Notification {
	prevXP := ev.TotalXP - int64(ev.XPAwarded)
	prevAnswered := ev.Seq - 1

	var out []models.Notification
	for _, t := range gamification.CrossedMilestones(gamification.AnsweredMilestones, prevAnswered, ev.Seq) {
		out = append(out, models.Notification{
			Kind:       models.NotificationAnsweredMilestone,
			Payload:    models.NotificationPayload{Threshold: t, EventID: ev.ID, Seq: ev.Seq},
			OccurredAt: ev.AnsweredAt,
		})
	}
	if s.ranks.IsPromotion(prevXP, ev.TotalXP) {
		out = append(out, models.Notification{
			Kind: models.NotificationRankPromotion,
			Payload: models.NotificationPayload{
				FromRank: s.ranks.RankFor(prevXP).Name,
				ToRank:   s.ranks.RankFor(ev.TotalXP).Name,
				EventID:  ev.ID,
				Seq:      ev.Seq,
			},
			OccurredAt: ev.AnsweredAt,
		})
	}
	for _, t := range gamification.CrossedMilestones(gamification.XPMilestones, prevXP, ev.TotalXP) {
		out = append(out, models.Notification{
			Kind:       models.NotificationXPMilestone,
			Payload:    models.NotificationPayload{Threshold: t, EventID: ev.ID, Seq: ev.Seq},
			OccurredAt: ev.AnsweredAt,
		})
	}
	return out
}

// checkConsistency compares the ledger record with a page of the log read
// after it. The page must continue the sequence from afterSeq without gaps;
// when it reaches the end of the log its last event must match the record.
func checkConsistency(learnerID string, rec *models.ProgressionRecord, afterSeq int64, events []models.AnswerEvent, truncated bool) error {
	if rec == nil {
		if len(events) > 0 {
			return fmt.Errorf("learner %s has events but no record: %w", learnerID, models.ErrInconsistentState)
		}
		return nil
	}

	want := afterSeq + 1
	for _, ev := range events {
		if ev.Seq != want {
			return fmt.Errorf("learner %s log jumps from seq %d to %d: %w",
				learnerID, want-1, ev.Seq, models.ErrInconsistentState)
		}
		want++
	}
	if truncated {
		return nil
	}

	lastSeq := want - 1
	switch {
	case lastSeq < rec.AnsweredCount:
		return fmt.Errorf("learner %s record counts %d answers, log ends at %d: %w",
			learnerID, rec.AnsweredCount, lastSeq, models.ErrInconsistentState)
	case len(events) > 0 && lastSeq == rec.AnsweredCount && events[len(events)-1].TotalXP != rec.XP:
		return fmt.Errorf("learner %s record has %d XP, log has %d: %w",
			learnerID, rec.XP, events[len(events)-1].TotalXP, models.ErrInconsistentState)
	}
	return nil
}

// ── Dashboard ───────────────────────────────────────────

// Dashboard bundles progress and every analytics view for one screen.
func (s *Service) Dashboard(ctx context.Context, learnerID string, now time.Time) (*models.DashboardResponse, error) {
	progress, err := s.progress.Progress(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	accuracy, err := s.SubjectAccuracy(ctx, learnerID, OrderAnswered)
	if err != nil {
		return nil, err
	}
	hardest, err := s.HardestTopics(ctx, learnerID, 0)
	if err != nil {
		return nil, err
	}
	trend, err := s.SevenDayTrend(ctx, learnerID, now)
	if err != nil {
		return nil, err
	}

	return &models.DashboardResponse{
		Progress: *progress,
		Accuracy: accuracy,
		Hardest:  hardest,
		Trend:    trend,
		Tip:      tipFor(hardest),
	}, nil
}

// ── Helpers ─────────────────────────────────────────────

func accuracyPct(correct, answered int64) float64 {
	if answered == 0 {
		return 0
	}
	pct := float64(correct) / float64(answered) * 100
	return math.Round(pct*10) / 10
}

// compareAccuracy compares correct/answered ratios exactly.
func compareAccuracy(a, b models.TopicTally) int {
	l := a.Correct * b.Answered
	r := b.Correct * a.Answered
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func topicLess(a, b models.TopicTally) bool {
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	return a.Topic < b.Topic
}
