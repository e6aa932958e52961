package gamification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/patente-quiz/backend/internal/models"
	"github.com/patente-quiz/backend/internal/store"
)

// QuestionSource resolves question identities to their answer keys.
type QuestionSource interface {
	GetQuestion(ctx context.Context, questionID string) (*models.Question, error)
}

type Options struct {
	XPPerCorrect int
	Policy       ResubmissionPolicy
}

// Service is the progression ledger: the only writer of progression records.
type Service struct {
	ledger    store.LedgerRepo
	questions QuestionSource
	evaluator Evaluator
	ranks     *RankTable
	policy    ResubmissionPolicy
}

func NewService(ledger store.LedgerRepo, questions QuestionSource, ranks *RankTable, opts Options) *Service {
	policy := opts.Policy
	if policy == nil {
		policy = RepeatScoring{}
	}
	return &Service{
		ledger:    ledger,
		questions: questions,
		evaluator: NewEvaluator(opts.XPPerCorrect),
		ranks:     ranks,
		policy:    policy,
	}
}

// Ranks exposes the immutable rank table.
func (s *Service) Ranks() *RankTable {
	return s.ranks
}

// ── Submission ──────────────────────────────────────────

// ApplySubmission scores choice for questionID and applies the result to the
// learner's record and answer log in one transaction. Validation failures
// leave no trace in either.
func (s *Service) ApplySubmission(ctx context.Context, learnerID, questionID, choice string, now time.Time) (*models.SubmissionResult, error) {
	if learnerID == "" {
		return nil, errors.New("learner id is required")
	}

	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	correct, baseXP, err := s.evaluator.Evaluate(*question, choice)
	if err != nil {
		return nil, err
	}
	choice = NormalizeChoice(choice)
	now = now.UTC()

	var result models.SubmissionResult
	_, err = s.ledger.Update(ctx, learnerID, now, func(ctx context.Context, tx store.LearnerTx) (*models.AnswerEvent, error) {
		rec := tx.Record()
		if rec.ArchivedAt != nil {
			return nil, fmt.Errorf("learner %s: %w", learnerID, models.ErrLearnerArchived)
		}

		xpAwarded := 0
		if correct {
			xp, err := s.policy.AwardXP(ctx, tx, question.ID, baseXP)
			if err != nil {
				return nil, err
			}
			xpAwarded = xp
		}

		// Keep per-learner event timestamps non-decreasing.
		at := now
		if at.Before(rec.UpdatedAt) {
			at = rec.UpdatedAt
		}

		oldXP := rec.XP
		rec.AnsweredCount++
		if correct {
			rec.CorrectCount++
		}
		rec.XP += int64(xpAwarded)
		rank := s.ranks.RankFor(rec.XP)
		rec.Rank = rank.Name
		rec.UpdatedAt = at

		if rec.CorrectCount > rec.AnsweredCount || rec.XP < oldXP {
			return nil, fmt.Errorf("learner %s counters: %w", learnerID, models.ErrInconsistentState)
		}

		ev := &models.AnswerEvent{
			ID:         uuid.NewString(),
			LearnerID:  learnerID,
			QuestionID: question.ID,
			Subject:    question.Subject,
			Topic:      question.Topic,
			Difficulty: question.Difficulty,
			Choice:     choice,
			Correct:    correct,
			XPAwarded:  xpAwarded,
			Seq:        rec.AnsweredCount,
			TotalXP:    rec.XP,
			AnsweredAt: at,
		}

		result = models.SubmissionResult{
			EventID:       ev.ID,
			Correct:       correct,
			XPAwarded:     xpAwarded,
			TotalXP:       rec.XP,
			AnsweredCount: rec.AnsweredCount,
			CorrectCount:  rec.CorrectCount,
			Rank:          rank.Name,
			AnsweredAt:    at,
		}
		if s.ranks.IsPromotion(oldXP, rec.XP) {
			name := rank.Name
			result.PromotedTo = &name
		}
		return ev, nil
	})
	if err != nil {
		if errors.Is(err, models.ErrInconsistentState) {
			log.Printf("[gamification] INTEGRITY ALARM: %v", err)
		}
		return nil, err
	}

	if result.PromotedTo != nil {
		log.Printf("[gamification] learner %s promoted to %s at %d XP", learnerID, *result.PromotedTo, result.TotalXP)
	}
	return &result, nil
}

// ── Progress ────────────────────────────────────────────

// Progress returns the learner's cumulative state. Unknown learners report
// zero counters at the lowest rank.
func (s *Service) Progress(ctx context.Context, learnerID string) (*models.ProgressResponse, error) {
	rec, err := s.ledger.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &models.ProgressionRecord{LearnerID: learnerID}
	}

	rank := s.ranks.RankFor(rec.XP)
	if rec.Rank != "" && rec.Rank != rank.Name {
		// Happens only when the rank table changed since the last submission.
		log.Printf("[gamification] learner %s stored rank %q differs from table rank %q", learnerID, rec.Rank, rank.Name)
	}

	resp := &models.ProgressResponse{
		LearnerID:     learnerID,
		XP:            rec.XP,
		AnsweredCount: rec.AnsweredCount,
		CorrectCount:  rec.CorrectCount,
		Rank:          rank.Name,
		Archived:      rec.ArchivedAt != nil,
	}
	if next, ok := s.ranks.Next(rank); ok {
		resp.NextRank = &next.Name
		resp.XPToNextRank = next.MinXP - rec.XP
	}
	return resp, nil
}

// ArchiveLearner soft-archives the learner's record; history stays readable.
func (s *Service) ArchiveLearner(ctx context.Context, learnerID string, now time.Time) error {
	if err := s.ledger.Archive(ctx, learnerID, now.UTC()); err != nil {
		return fmt.Errorf("archive learner %s: %w", learnerID, err)
	}
	log.Printf("[gamification] learner %s archived", learnerID)
	return nil
}
