package gamification

import (
	"fmt"
	"strings"

	"github.com/patente-quiz/backend/internal/models"
)

// DefaultXPPerCorrect is awarded for every correct answer.
const DefaultXPPerCorrect = 10

// Unanswered is the normalized choice for a skipped question.
const Unanswered = ""

// Evaluator judges submissions. It holds only configuration and is safe for
// concurrent use.
type Evaluator struct {
	xpPerCorrect int
}

func NewEvaluator(xpPerCorrect int) Evaluator {
	if xpPerCorrect <= 0 {
		xpPerCorrect = DefaultXPPerCorrect
	}
	return Evaluator{xpPerCorrect: xpPerCorrect}
}

// XPPerCorrect returns the configured reward for a correct answer.
func (e Evaluator) XPPerCorrect() int {
	return e.xpPerCorrect
}

// NormalizeChoice trims and upper-cases a submitted choice label.
func NormalizeChoice(choice string) string {
	return strings.ToUpper(strings.TrimSpace(choice))
}

// Evaluate returns whether choice matches the question's answer key and the
// XP it earns. Unanswered is accepted and scores zero.
func (e Evaluator) Evaluate(q models.Question, choice string) (bool, int, error) {
	key := NormalizeChoice(q.AnswerKey)
	if key == "" {
		return false, 0, fmt.Errorf("question %q has no answer key: %w", q.ID, models.ErrInvalidQuestion)
	}

	labels := q.Labels()
	if !hasLabel(labels, key) {
		return false, 0, fmt.Errorf("question %q answer key %q is not a choice: %w", q.ID, key, models.ErrInvalidQuestion)
	}

	choice = NormalizeChoice(choice)
	if choice == Unanswered {
		return false, 0, nil
	}
	if !hasLabel(labels, choice) {
		return false, 0, fmt.Errorf("choice %q not in %v: %w", choice, labels, models.ErrInvalidChoice)
	}

	if choice != key {
		return false, 0, nil
	}
	return true, e.xpPerCorrect, nil
}

func hasLabel(labels []string, choice string) bool {
	for _, l := range labels {
		if NormalizeChoice(l) == choice {
			return true
		}
	}
	return false
}
