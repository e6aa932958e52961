package questions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patente-quiz/backend/internal/models"
)

const sampleCatalog = `{
  "version": 1,
  "questions": [
    {"id": "q1", "answer_key": "b", "subject": "Road Signs", "topic": "Danger", "difficulty": "easy"},
    {"id": "q2", "answer_key": "V", "choices": ["v", "f"], "subject": "Right of Way", "topic": "Junctions"}
  ]
}`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	q, err := c.GetQuestion(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "B", q.AnswerKey)
	assert.Equal(t, models.DefaultChoiceLabels, q.Labels())

	q, err = c.GetQuestion(context.Background(), "q2")
	require.NoError(t, err)
	assert.Equal(t, []string{"V", "F"}, q.Choices)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, []string{c.All()[0].ID, c.All()[1].ID})

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseCatalogRejectsWrongVersion(t *testing.T) {
	_, err := ParseCatalog([]byte(`{"version": 2, "questions": []}`))
	assert.Error(t, err)
}

func TestUnknownQuestion(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	_, err = c.GetQuestion(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrUnknownQuestion)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		q    models.Question
	}{
		{"no id", models.Question{AnswerKey: "A", Subject: "s", Topic: "t"}},
		{"no subject", models.Question{ID: "q", AnswerKey: "A", Topic: "t"}},
		{"no answer key", models.Question{ID: "q", Subject: "s", Topic: "t"}},
		{"key outside defaults", models.Question{ID: "q", AnswerKey: "F", Subject: "s", Topic: "t"}},
		{"key outside choices", models.Question{ID: "q", AnswerKey: "C", Choices: []string{"A", "B"}, Subject: "s", Topic: "t"}},
		{"duplicate label", models.Question{ID: "q", AnswerKey: "A", Choices: []string{"A", "a"}, Subject: "s", Topic: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.q)
			assert.ErrorIs(t, err, models.ErrInvalidQuestion)
		})
	}
}

func TestAddIsAllOrNothing(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	err = c.Add(
		models.Question{ID: "ok", AnswerKey: "A", Subject: "s", Topic: "t"},
		models.Question{ID: "bad", Subject: "s", Topic: "t"},
	)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
