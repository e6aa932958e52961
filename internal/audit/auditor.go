package audit

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/patente-quiz/backend/internal/models"
)

// Source is the read surface the auditor needs from the store.
type Source interface {
	LearnerIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, learnerID string) (*models.ProgressionRecord, error)
	Totals(ctx context.Context, learnerID string) (models.HistoryTotals, error)
}

// Report summarises one audit pass.
type Report struct {
	Checked int
	Skipped int
	Alarms  []string
}

// Auditor reconciles each progression record against the answer log. It
// never repairs anything: a mismatch is an integrity alarm for operators.
type Auditor struct {
	source Source
}

func NewAuditor(source Source) *Auditor {
	return &Auditor{source: source}
}

var errInFlight = errors.New("submission in flight")

// CheckLearner returns ErrInconsistentState when the learner's counters and
// log disagree.
func (a *Auditor) CheckLearner(ctx context.Context, learnerID string) error {
	// Record first: the log can then only be ahead of it, never behind.
	rec, err := a.source.Get(ctx, learnerID)
	if err != nil {
		return err
	}
	totals, err := a.source.Totals(ctx, learnerID)
	if err != nil {
		return err
	}

	if rec == nil {
		if totals.Events > 0 {
			return fmt.Errorf("learner %s has %d events but no record: %w", learnerID, totals.Events, models.ErrInconsistentState)
		}
		return nil
	}
	if totals.Events > rec.AnsweredCount {
		return errInFlight
	}

	switch {
	case totals.Events != rec.AnsweredCount:
		return fmt.Errorf("learner %s answered %d, log has %d events: %w", learnerID, rec.AnsweredCount, totals.Events, models.ErrInconsistentState)
	case totals.MaxSeq != rec.AnsweredCount:
		return fmt.Errorf("learner %s answered %d, log seq ends at %d: %w", learnerID, rec.AnsweredCount, totals.MaxSeq, models.ErrInconsistentState)
	case totals.Correct != rec.CorrectCount:
		return fmt.Errorf("learner %s correct %d, log has %d: %w", learnerID, rec.CorrectCount, totals.Correct, models.ErrInconsistentState)
	case totals.XP != rec.XP:
		return fmt.Errorf("learner %s XP %d, log sums to %d: %w", learnerID, rec.XP, totals.XP, models.ErrInconsistentState)
	}
	return nil
}

// Run audits every learner. Storage errors abort the pass; inconsistencies
// are collected and logged.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	var report Report

	ids, err := a.source.LearnerIDs(ctx)
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := a.CheckLearner(ctx, id)
		switch {
		case err == nil:
			report.Checked++
		case errors.Is(err, errInFlight):
			report.Skipped++
		case errors.Is(err, models.ErrInconsistentState):
			report.Checked++
			report.Alarms = append(report.Alarms, id)
			log.Printf("[audit] INTEGRITY ALARM: %v", err)
		default:
			return report, fmt.Errorf("audit learner %s: %w", id, err)
		}
	}

	log.Printf("[audit] checked %d learners, skipped %d, %d alarms", report.Checked, report.Skipped, len(report.Alarms))
	return report, nil
}
