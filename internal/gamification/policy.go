package gamification

import (
	"context"
	"fmt"

	"github.com/patente-quiz/backend/internal/store"
)

const (
	PolicyRepeat       = "repeat"
	PolicyFirstCorrect = "first_correct"
)

// ResubmissionPolicy decides how much XP a correct answer earns when the
// learner may have answered the same question before.
type ResubmissionPolicy interface {
	Name() string
	AwardXP(ctx context.Context, tx store.LearnerTx, questionID string, baseXP int) (int, error)
}

// RepeatScoring awards XP for every correct attempt.
type RepeatScoring struct{}

func (RepeatScoring) Name() string { return PolicyRepeat }

func (RepeatScoring) AwardXP(_ context.Context, _ store.LearnerTx, _ string, baseXP int) (int, error) {
	return baseXP, nil
}

// FirstCorrectOnly awards XP only for the first correct answer to a
// question. Later attempts still count towards the answered/correct totals.
type FirstCorrectOnly struct{}

func (FirstCorrectOnly) Name() string { return PolicyFirstCorrect }

func (FirstCorrectOnly) AwardXP(ctx context.Context, tx store.LearnerTx, questionID string, baseXP int) (int, error) {
	if baseXP == 0 {
		return 0, nil
	}
	seen, err := tx.AnsweredCorrectly(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if seen {
		return 0, nil
	}
	return baseXP, nil
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (ResubmissionPolicy, error) {
	switch name {
	case "", PolicyRepeat:
		return RepeatScoring{}, nil
	case PolicyFirstCorrect:
		return FirstCorrectOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown resubmission policy %q", name)
	}
}
