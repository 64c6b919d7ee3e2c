// Package scoring turns one submission's raw answers into per-subject and
// total scores plus a bonus-adjusted final score.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examstat/cutline/internal/anomaly"
	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Answer is one marked answer in a score request.
type Answer struct {
	Subject  string `json:"subject"`
	Question int    `json:"question"`
	Selected int    `json:"selected"`
}

// Request is one full answer-sheet submission.
type Request struct {
	UserID      string         `json:"-"`
	ExamID      string         `json:"exam_id"`
	ExamType    exam.ExamType  `json:"exam_type"`
	Region      string         `json:"region"`
	Gender      string         `json:"gender,omitempty"`
	ExamNumber  string         `json:"exam_number,omitempty"`
	Bonus       exam.BonusType `json:"bonus_type"`
	DurationSec int            `json:"duration_sec,omitempty"`
	Answers     []Answer       `json:"answers"`
}

// Engine validates, scores and persists submissions.
type Engine struct {
	cfg  store.ConfigSource
	subs store.SubmissionStore
}

func NewEngine(cfg store.ConfigSource, subs store.SubmissionStore) *Engine {
	return &Engine{cfg: cfg, subs: subs}
}

// Score validates the request, computes all scores, runs the anomaly
// detector and persists the submission with its children in one unit of
// work. A resubmission replaces the previous one.
func (e *Engine) Score(ctx context.Context, req Request) (exam.Submission, error) {
	subjects, err := e.cfg.Subjects(req.ExamID, req.ExamType)
	if err != nil {
		return exam.Submission{}, fmt.Errorf("load subjects: %w", err)
	}
	quota, err := e.cfg.Quota(req.ExamID, req.Region)
	if err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			return exam.Submission{}, exam.Invalidf("unknown region %q for exam %q", req.Region, req.ExamID)
		}
		return exam.Submission{}, fmt.Errorf("load region quota: %w", err)
	}
	if err := Validate(req, subjects, quota); err != nil {
		return exam.Submission{}, err
	}
	key, err := e.cfg.AnswerKey(req.ExamID, req.ExamType)
	if err != nil {
		return exam.Submission{}, fmt.Errorf("load answer key: %w", err)
	}

	res, err := Compute(subjects, key, req.Answers, req.Bonus)
	if err != nil {
		return exam.Submission{}, err
	}

	sub := exam.Submission{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		ExamID:      req.ExamID,
		ExamType:    req.ExamType,
		Region:      req.Region,
		Gender:      req.Gender,
		ExamNumber:  req.ExamNumber,
		TotalScore:  res.TotalScore,
		FinalScore:  res.FinalScore,
		BonusType:   req.Bonus,
		BonusRate:   req.Bonus.Rate(),
		DurationSec: req.DurationSec,
		CreatedAt:   time.Now().Unix(),
		Subjects:    res.Subjects,
		Answers:     res.Answers,
	}

	report := anomaly.Detect(Flatten(subjects, res.Answers), res.TotalScore, res.MaxScore, req.DurationSec)
	sub.Suspicious = report.Suspicious
	sub.SuspicionReasons = report.Reasons

	if err := e.subs.SaveSubmission(ctx, sub); err != nil {
		return exam.Submission{}, fmt.Errorf("save submission: %w", err)
	}
	return sub, nil
}

// Validate checks a request against the track configuration. Hero bonus
// tiers are gated on the region's recruit count here, before the engine
// computes anything.
func Validate(req Request, subjects []exam.Subject, quota exam.RegionQuota) error {
	if !req.ExamType.Valid() {
		return exam.Invalidf("unknown exam type %q", req.ExamType)
	}
	if !req.Bonus.Valid() {
		return exam.Invalidf("unknown bonus type %q", req.Bonus)
	}
	if req.Bonus.HeroTier() && quota.RecruitFor(req.ExamType) < exam.MinRecruitForHero {
		return exam.Invalidf("bonus %q requires a recruit count of at least %d in region %q",
			req.Bonus, exam.MinRecruitForHero, req.Region)
	}

	byName := map[string]exam.Subject{}
	want := 0
	for _, s := range subjects {
		byName[s.Name] = s
		want += s.QuestionCount
	}
	if len(req.Answers) != want {
		return exam.Invalidf("expected %d answers, got %d", want, len(req.Answers))
	}

	seen := map[string]bool{}
	for _, a := range req.Answers {
		s, ok := byName[a.Subject]
		if !ok {
			return exam.Invalidf("unknown subject %q", a.Subject)
		}
		if a.Question < 1 || a.Question > s.QuestionCount {
			return exam.Invalidf("subject %q has no question %d", a.Subject, a.Question)
		}
		if a.Selected < 1 || a.Selected > 4 {
			return exam.Invalidf("answer for %q question %d must be 1..4, got %d", a.Subject, a.Question, a.Selected)
		}
		k := fmt.Sprintf("%s#%d", a.Subject, a.Question)
		if seen[k] {
			return exam.Invalidf("duplicate answer for %q question %d", a.Subject, a.Question)
		}
		seen[k] = true
	}
	return nil
}

// Computed is the pure scoring outcome, before persistence.
type Computed struct {
	TotalScore float64
	FinalScore float64
	MaxScore   float64
	Subjects   []exam.SubjectScore
	Answers    []exam.UserAnswer
}

// Compute scores validated answers against the given key. It is pure so the
// rescoring orchestrator can replay it against a corrected key.
func Compute(subjects []exam.Subject, key exam.KeySet, answers []Answer, bonus exam.BonusType) (Computed, error) {
	correctBySubject := map[string]int{}
	userAnswers := make([]exam.UserAnswer, 0, len(answers))
	for _, a := range answers {
		want, ok := key.Correct(a.Subject, a.Question)
		if !ok {
			return Computed{}, fmt.Errorf("no answer key for subject %q question %d", a.Subject, a.Question)
		}
		correct := a.Selected == want
		if correct {
			correctBySubject[a.Subject]++
		}
		userAnswers = append(userAnswers, exam.UserAnswer{
			Subject:  a.Subject,
			Question: a.Question,
			Selected: a.Selected,
			Correct:  correct,
		})
	}

	var res Computed
	res.Answers = userAnswers
	for _, s := range subjects {
		raw := float64(correctBySubject[s.Name]) * s.PointPerQuestion
		res.Subjects = append(res.Subjects, exam.SubjectScore{
			Subject:  s.Name,
			RawScore: raw,
			Failed:   raw < exam.CutoffRate*s.MaxScore,
		})
		res.TotalScore += raw
		res.MaxScore += s.MaxScore
	}
	res.FinalScore = exam.Round2(res.TotalScore * (1 + bonus.Rate()))
	return res, nil
}

// Flatten orders the marked answers by the configured subject order, then by
// question number, for the anomaly detector's fixed-order sequence. Rescoring
// reuses it so both passes feed the detector the same sequence.
func Flatten(subjects []exam.Subject, answers []exam.UserAnswer) []int {
	byKey := map[string]int{}
	for _, a := range answers {
		byKey[fmt.Sprintf("%s#%d", a.Subject, a.Question)] = a.Selected
	}
	var seq []int
	for _, s := range subjects {
		for q := 1; q <= s.QuestionCount; q++ {
			if v, ok := byKey[fmt.Sprintf("%s#%d", s.Name, q)]; ok {
				seq = append(seq, v)
			}
		}
	}
	return seq
}
