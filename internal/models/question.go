package models

// DefaultChoiceLabels are used when a question does not list its own labels.
var DefaultChoiceLabels = []string{"A", "B", "C", "D", "E"}

// Question is read-only to the engine; its lifecycle belongs to the catalog.
type Question struct {
	ID         string   `json:"id"`
	AnswerKey  string   `json:"answer_key"`
	Choices    []string `json:"choices,omitempty"`
	Subject    string   `json:"subject"`
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// Labels returns the allowed choice labels for q.
func (q Question) Labels() []string {
	if len(q.Choices) == 0 {
		return DefaultChoiceLabels
	}
	return q.Choices
}

// QuestionEnvelope is the on-disk format for importing a question catalog.
type QuestionEnvelope struct {
	Version   int        `json:"version"`
	Questions []Question `json:"questions"`
}
