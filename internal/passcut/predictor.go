package passcut

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Prediction is one region/track projection row.
type Prediction struct {
	Region                string        `json:"region"`
	ExamType              exam.ExamType `json:"exam_type"`
	RecruitCount          int           `json:"recruit_count"`
	ParticipantCount      int           `json:"participant_count"`
	EstimatedApplicants   int           `json:"estimated_applicants"` // 0 when unknown
	IsApplicantCountExact bool          `json:"is_applicant_count_exact"`
	CompetitionRate       *float64      `json:"competition_rate,omitempty"`
	OneMultipleCutScore   *float64      `json:"one_multiple_cut_score,omitempty"`
	LikelyMinScore        *float64      `json:"likely_min_score,omitempty"`
	PossibleMinScore      *float64      `json:"possible_min_score,omitempty"`
}

// ScoreSource is the read surface the predictor needs.
type ScoreSource interface {
	FinalScores(ctx context.Context, f store.PopulationFilter) ([]float64, error)
}

// Predictor projects threshold scores per (region, track). The population is
// every non-suspicious submission without a failed subject.
type Predictor struct {
	scores ScoreSource
	cfg    store.ConfigSource
	pass   MultiplePolicy
	likely MultiplePolicy
}

func NewPredictor(scores ScoreSource, cfg store.ConfigSource) *Predictor {
	return &Predictor{
		scores: scores,
		cfg:    cfg,
		pass:   DefaultPassMultiple,
		likely: DefaultLikelyMultiple,
	}
}

// WithPolicies swaps the multiple curves; used when the authoritative rule
// differs from the defaults.
func (p *Predictor) WithPolicies(pass, likely MultiplePolicy) *Predictor {
	p.pass, p.likely = pass, likely
	return p
}

// Predict computes prediction rows for every (region, track) of the exam
// with a positive recruit count.
func (p *Predictor) Predict(ctx context.Context, examID string) ([]Prediction, error) {
	quotas, err := p.cfg.Quotas(examID)
	if err != nil {
		return nil, fmt.Errorf("load quotas: %w", err)
	}
	var out []Prediction
	for _, q := range quotas {
		for _, t := range exam.AllTypes {
			if q.RecruitFor(t) <= 0 {
				continue
			}
			pred, err := p.predictOne(ctx, examID, q, t)
			if err != nil {
				return nil, err
			}
			out = append(out, pred)
		}
	}
	return out, nil
}

// PredictOne computes the row for a single (region, track).
func (p *Predictor) PredictOne(ctx context.Context, examID, region string, t exam.ExamType) (Prediction, error) {
	q, err := p.cfg.Quota(examID, region)
	if err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			return Prediction{}, exam.Invalidf("unknown region %q for exam %q", region, examID)
		}
		return Prediction{}, fmt.Errorf("load region quota: %w", err)
	}
	if q.RecruitFor(t) <= 0 {
		return Prediction{}, exam.Invalidf("region %q recruits nobody on track %q", region, t)
	}
	return p.predictOne(ctx, examID, q, t)
}

func (p *Predictor) predictOne(ctx context.Context, examID string, q exam.RegionQuota, t exam.ExamType) (Prediction, error) {
	scores, err := p.scores.FinalScores(ctx, store.PopulationFilter{
		ExamID:        examID,
		ExamType:      t,
		Region:        q.Region,
		ExcludeFailed: true,
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("load scores: %w", err)
	}

	recruit := q.RecruitFor(t)
	pred := Prediction{
		Region:           q.Region,
		ExamType:         t,
		RecruitCount:     recruit,
		ParticipantCount: len(scores),
	}
	if q.ApplicantCount != nil {
		pred.EstimatedApplicants = *q.ApplicantCount
		pred.IsApplicantCountExact = true
		rate := exam.Round2(float64(*q.ApplicantCount) / float64(recruit))
		pred.CompetitionRate = &rate
	}

	bands := BuildBands(scores)
	if one, ok := ScoreAtRank(bands, recruit); ok {
		v := exam.Round2(one)
		pred.OneMultipleCutScore = &v
	}

	likelyEnd := int(math.Floor(float64(recruit) * p.likely(recruit)))
	if v, ok := MinScoreInWindow(bands, recruit+1, likelyEnd); ok {
		r := exam.Round2(v)
		pred.LikelyMinScore = &r
	}
	possibleEnd := int(math.Ceil(float64(recruit) * p.pass(recruit)))
	if v, ok := MinScoreInWindow(bands, likelyEnd+1, possibleEnd); ok {
		r := exam.Round2(v)
		pred.PossibleMinScore = &r
	}
	return pred, nil
}
