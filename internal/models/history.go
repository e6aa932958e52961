package models

import "time"

// ── History Types ────────────────────────────────────────

// AnswerEvent is the immutable record of one submission. Seq is the learner's
// answered count after this event and TotalXP the learner's XP after it.
type AnswerEvent struct {
	ID         string    `json:"id" db:"id"`
	LearnerID  string    `json:"learner_id" db:"learner_id"`
	QuestionID string    `json:"question_id" db:"question_id"`
	Subject    string    `json:"subject" db:"subject"`
	Topic      string    `json:"topic" db:"topic"`
	Difficulty string    `json:"difficulty,omitempty" db:"difficulty"`
	Choice     string    `json:"choice" db:"choice"`
	Correct    bool      `json:"correct" db:"correct"`
	XPAwarded  int       `json:"xp_awarded" db:"xp_awarded"`
	Seq        int64     `json:"seq" db:"seq"`
	TotalXP    int64     `json:"total_xp" db:"total_xp"`
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}

// TopicTally counts a learner's answers for one subject+topic pair.
type TopicTally struct {
	Subject  string `db:"subject"`
	Topic    string `db:"topic"`
	Answered int64  `db:"answered"`
	Correct  int64  `db:"correct"`
}

// DayTally counts a learner's answers for one UTC calendar day (YYYY-MM-DD).
type DayTally struct {
	Date     string `db:"day"`
	Answered int64  `db:"answered"`
	Correct  int64  `db:"correct"`
}

// HistoryTotals summarises a learner's whole event log.
type HistoryTotals struct {
	Events  int64 `db:"events"`
	Correct int64 `db:"correct"`
	XP      int64 `db:"xp"`
	MaxSeq  int64 `db:"max_seq"`
}

// ── Response Types ────────────────────────────────────────

type TopicAccuracy struct {
	Subject     string  `json:"subject"`
	Topic       string  `json:"topic"`
	Answered    int64   `json:"answered"`
	Correct     int64   `json:"correct"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

type HardTopic struct {
	Subject     string  `json:"subject"`
	Topic       string  `json:"topic"`
	AccuracyPct float64 `json:"accuracy_pct"`
	Answered    int64   `json:"answered"`
}

type DailyProgress struct {
	Date     string `json:"date"`
	Answered int64  `json:"answered"`
	Correct  int64  `json:"correct"`
}

type StudyTip struct {
	Key     string `json:"tip_key"`
	Subject string `json:"subject,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

type DashboardResponse struct {
	Progress ProgressResponse `json:"progress"`
	Accuracy []TopicAccuracy  `json:"accuracy"`
	Hardest  []HardTopic      `json:"hardest"`
	Trend    []DailyProgress  `json:"trend"`
	Tip      StudyTip         `json:"tip"`
}

// ── Notifications ─────────────────────────────────────────

const (
	NotificationRankPromotion     = "rank_promotion"
	NotificationXPMilestone       = "xp_milestone"
	NotificationAnsweredMilestone = "answered_milestone"
)

type NotificationPayload struct {
	FromRank  string `json:"from_rank,omitempty"`
	ToRank    string `json:"to_rank,omitempty"`
	Threshold int64  `json:"threshold,omitempty"`
	EventID   string `json:"event_id"`
	Seq       int64  `json:"seq"`
}

type Notification struct {
	Kind       string              `json:"kind"`
	Payload    NotificationPayload `json:"payload"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NotificationsResponse is one page of the feed. Callers acknowledge by
// passing NextSeq back as the next cursor; Truncated means more events
// remain after NextSeq.
type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	AfterSeq      int64          `json:"after_seq"`
	NextSeq       int64          `json:"next_seq"`
	Truncated     bool           `json:"truncated"`
}
