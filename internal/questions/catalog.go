package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/patente-quiz/backend/internal/models"
)

// CatalogVersion is the envelope version LoadCatalog understands.
const CatalogVersion = 1

// Catalog is an in-memory question lookup, used by the memory backend and
// as the import source for Postgres.
type Catalog struct {
	mu        sync.RWMutex
	questions map[string]models.Question
}

func NewCatalog(qs ...models.Question) (*Catalog, error) {
	c := &Catalog{questions: make(map[string]models.Question, len(qs))}
	if err := c.Add(qs...); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog reads a JSON question envelope from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var env models.QuestionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if env.Version != CatalogVersion {
		return nil, fmt.Errorf("catalog version %d not supported (want %d)", env.Version, CatalogVersion)
	}
	return NewCatalog(env.Questions...)
}

// Add validates and stores questions, replacing any with the same ID.
// Nothing is added when one question is invalid.
func (c *Catalog) Add(qs ...models.Question) error {
	normalized := make([]models.Question, 0, len(qs))
	for _, q := range qs {
		n, err := Normalize(q)
		if err != nil {
			return err
		}
		normalized = append(normalized, n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range normalized {
		c.questions[q.ID] = q
	}
	return nil
}

func (c *Catalog) GetQuestion(_ context.Context, questionID string) (*models.Question, error) {
	c.mu.RLock()
	q, ok := c.questions[questionID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("question %q: %w", questionID, models.ErrUnknownQuestion)
	}
	return &q, nil
}

// All returns every question ordered by ID.
func (c *Catalog) All() []models.Question {
	c.mu.RLock()
	out := make([]models.Question, 0, len(c.questions))
	for _, q := range c.questions {
		out = append(out, q)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.questions)
}

// Normalize trims and upper-cases labels and checks that the answer key is
// one of them.
func Normalize(q models.Question) (models.Question, error) {
	q.ID = strings.TrimSpace(q.ID)
	q.Subject = strings.TrimSpace(q.Subject)
	q.Topic = strings.TrimSpace(q.Topic)
	q.AnswerKey = strings.ToUpper(strings.TrimSpace(q.AnswerKey))

	if q.ID == "" {
		return q, fmt.Errorf("question without id: %w", models.ErrInvalidQuestion)
	}
	if q.Subject == "" || q.Topic == "" {
		return q, fmt.Errorf("question %q needs subject and topic: %w", q.ID, models.ErrInvalidQuestion)
	}
	if q.AnswerKey == "" {
		return q, fmt.Errorf("question %q has no answer key: %w", q.ID, models.ErrInvalidQuestion)
	}

	if len(q.Choices) > 0 {
		seen := make(map[string]bool, len(q.Choices))
		choices := make([]string, len(q.Choices))
		for i, c := range q.Choices {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c == "" || seen[c] {
				return q, fmt.Errorf("question %q has empty or duplicate label %q: %w", q.ID, c, models.ErrInvalidQuestion)
			}
			seen[c] = true
			choices[i] = c
		}
		q.Choices = choices
	}

	found := false
	for _, l := range q.Labels() {
		if l == q.AnswerKey {
			found = true
			break
		}
	}
	if !found {
		return q, fmt.Errorf("question %q answer key %q is not a choice: %w", q.ID, q.AnswerKey, models.ErrInvalidQuestion)
	}
	return q, nil
}
