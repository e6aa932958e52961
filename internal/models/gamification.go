package models

import "time"

// ── Progression ───────────────────────────────────────────

// ProgressionRecord is the cumulative per-learner state owned by the ledger.
// CorrectCount never exceeds AnsweredCount and XP never decreases.
type ProgressionRecord struct {
	LearnerID     string     `json:"learner_id" db:"learner_id"`
	XP            int64      `json:"xp" db:"xp"`
	AnsweredCount int64      `json:"answered_count" db:"answered_count"`
	CorrectCount  int64      `json:"correct_count" db:"correct_count"`
	Rank          string     `json:"rank" db:"rank_name"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Rank is one entry of the rank table.
type Rank struct {
	Name    string `json:"name"`
	MinXP   int64  `json:"min_xp"`
	Ordinal int    `json:"ordinal"`
}

// ── Request Types ─────────────────────────────────────────

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Choice     string `json:"choice"`
}

// ── Response Types ────────────────────────────────────────

type SubmissionResult struct {
	EventID       string    `json:"event_id"`
	Correct       bool      `json:"correct"`
	XPAwarded     int       `json:"xp_awarded"`
	TotalXP       int64     `json:"total_xp"`
	AnsweredCount int64     `json:"answered_count"`
	CorrectCount  int64     `json:"correct_count"`
	Rank          string    `json:"rank"`
	PromotedTo    *string   `json:"promoted_to,omitempty"`
	AnsweredAt    time.Time `json:"answered_at"`
}

type ProgressResponse struct {
	LearnerID     string  `json:"learner_id"`
	XP            int64   `json:"xp"`
	AnsweredCount int64   `json:"answered_count"`
	CorrectCount  int64   `json:"correct_count"`
	Rank          string  `json:"rank"`
	NextRank      *string `json:"next_rank,omitempty"`
	XPToNextRank  int64   `json:"xp_to_next_rank"`
	Archived      bool    `json:"archived"`
}
