// Package rescore replays scoring for every affected submission after an
// answer-key correction, with a full audit trail.
package rescore

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/examstat/cutline/internal/anomaly"
	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/scoring"
	"github.com/examstat/cutline/internal/store"
)

// scoreEpsilon separates real score changes from float noise.
const scoreEpsilon = 0.005

// Summary is the aggregate outcome of one rescoring invocation. EventID is
// empty when nothing changed and no event was emitted.
type Summary struct {
	EventID   string `json:"event_id,omitempty"`
	Increased int    `json:"increased"`
	Decreased int    `json:"decreased"`
	Unchanged int    `json:"unchanged"`
}

// Orchestrator re-runs the scoring computation for a whole exam scope.
type Orchestrator struct {
	cfg   store.ConfigSource
	subs  store.SubmissionStore
	audit store.RescoreStore
}

func NewOrchestrator(cfg store.ConfigSource, subs store.SubmissionStore, audit store.RescoreStore) *Orchestrator {
	return &Orchestrator{cfg: cfg, subs: subs, audit: audit}
}

// Rescore replays scoring against the current answer key for every
// submission of the exam, scoped to one track when t is non-empty. Score
// rewrites and audit rows commit as one unit of work. Re-running with an
// unchanged key is idempotent: nothing is classified as changed and no
// event is written.
func (o *Orchestrator) Rescore(ctx context.Context, examID string, t exam.ExamType, adminID, reason string) (Summary, error) {
	tracks := exam.AllTypes
	if t != "" {
		if !t.Valid() {
			return Summary{}, exam.Invalidf("unknown exam type %q", t)
		}
		tracks = []exam.ExamType{t}
	}

	var (
		sum     Summary
		details []exam.RescoreDetail
		updated []exam.Submission
	)
	for _, track := range tracks {
		subs, err := o.subs.ListSubmissions(ctx, examID, track)
		if err != nil {
			return Summary{}, fmt.Errorf("list submissions: %w", err)
		}
		if len(subs) == 0 {
			continue
		}
		subjects, err := o.cfg.Subjects(examID, track)
		if err != nil {
			return Summary{}, fmt.Errorf("load subjects: %w", err)
		}
		key, err := o.cfg.AnswerKey(examID, track)
		if err != nil {
			return Summary{}, fmt.Errorf("load answer key: %w", err)
		}

		for _, sub := range subs {
			next, err := o.recompute(sub, subjects, key)
			if err != nil {
				return Summary{}, fmt.Errorf("rescore user %q: %w", sub.UserID, err)
			}
			delta := next.FinalScore - sub.FinalScore
			switch {
			case delta > scoreEpsilon:
				sum.Increased++
			case delta < -scoreEpsilon:
				sum.Decreased++
			default:
				sum.Unchanged++
				// Offsetting corrections can move subject scores and
				// answer marks while the final score stays put. Those
				// submissions still need their stored rows rewritten,
				// just without a notification row.
				if submissionChanged(sub, next) {
					updated = append(updated, next)
				}
				continue
			}
			details = append(details, exam.RescoreDetail{
				SubmissionID: sub.ID,
				UserID:       sub.UserID,
				OldScore:     sub.FinalScore,
				NewScore:     next.FinalScore,
			})
			updated = append(updated, next)
		}
	}

	// Idempotence: an unchanged key rewrites nothing and, by policy, emits
	// no event row at all to avoid notification spam.
	if len(updated) == 0 {
		return sum, nil
	}

	ev := exam.RescoreEvent{
		ID:        uuid.NewString(),
		ExamID:    examID,
		ExamType:  t,
		AdminID:   adminID,
		Reason:    reason,
		CreatedAt: time.Now().Unix(),
	}
	for i := range details {
		details[i].EventID = ev.ID
	}
	if err := o.audit.ApplyRescore(ctx, ev, details, updated); err != nil {
		return Summary{}, fmt.Errorf("apply rescore: %w", err)
	}
	sum.EventID = ev.ID
	return sum, nil
}

// recompute rebuilds a submission's scores from its stored answers and the
// current key, keeping identity fields and re-running the anomaly pass.
func (o *Orchestrator) recompute(sub exam.Submission, subjects []exam.Subject, key exam.KeySet) (exam.Submission, error) {
	answers := make([]scoring.Answer, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		answers = append(answers, scoring.Answer{Subject: a.Subject, Question: a.Question, Selected: a.Selected})
	}
	res, err := scoring.Compute(subjects, key, answers, sub.BonusType)
	if err != nil {
		return exam.Submission{}, err
	}

	next := sub
	next.TotalScore = res.TotalScore
	next.FinalScore = res.FinalScore
	next.Subjects = res.Subjects
	next.Answers = res.Answers

	// The detector's sequence follows configured subject order, same as
	// initial scoring, so both passes judge an identical sequence.
	flat := scoring.Flatten(subjects, res.Answers)
	report := anomaly.Detect(flat, res.TotalScore, res.MaxScore, sub.DurationSec)
	next.Suspicious = report.Suspicious
	next.SuspicionReasons = report.Reasons
	return next, nil
}

// submissionChanged reports whether the recomputed submission differs from
// the stored one anywhere below the final score: subject raws, failed flags,
// per-answer correctness, or the anomaly verdict.
func submissionChanged(old, next exam.Submission) bool {
	if math.Abs(next.TotalScore-old.TotalScore) > scoreEpsilon {
		return true
	}
	if next.Suspicious != old.Suspicious {
		return true
	}
	prevSubjects := make(map[string]exam.SubjectScore, len(old.Subjects))
	for _, ss := range old.Subjects {
		prevSubjects[ss.Subject] = ss
	}
	for _, ss := range next.Subjects {
		prev, ok := prevSubjects[ss.Subject]
		if !ok || prev.Failed != ss.Failed || math.Abs(prev.RawScore-ss.RawScore) > scoreEpsilon {
			return true
		}
	}
	prevCorrect := make(map[string]bool, len(old.Answers))
	for _, a := range old.Answers {
		prevCorrect[fmt.Sprintf("%s#%d", a.Subject, a.Question)] = a.Correct
	}
	for _, a := range next.Answers {
		if prevCorrect[fmt.Sprintf("%s#%d", a.Subject, a.Question)] != a.Correct {
			return true
		}
	}
	return false
}
