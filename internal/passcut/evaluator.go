package passcut

import (
	"context"
	"fmt"
	"math"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Thresholds gate release readiness. Policy-defined; defaults below.
type Thresholds struct {
	MinParticipants int     // below this the sample is insufficient
	MinCoverage     float64 // observed participants / expected applicants
	MinStability    float64 // projected-score stability vs the last release
}

// DefaultThresholds are the assumed readiness gates.
var DefaultThresholds = Thresholds{
	MinParticipants: 10,
	MinCoverage:     0.30,
	MinStability:    0.90,
}

// Evaluator decides, per (region, track), whether the projection is ready to
// publish. Evaluate is a pure read: it can be invoked redundantly by
// concurrent traffic and never writes.
type Evaluator struct {
	pred *Predictor
	cfg  store.ConfigSource
	rel  store.ReleaseStore
	th   Thresholds
}

func NewEvaluator(pred *Predictor, cfg store.ConfigSource, rel store.ReleaseStore, th Thresholds) *Evaluator {
	return &Evaluator{pred: pred, cfg: cfg, rel: rel, th: th}
}

// Evaluate computes one snapshot candidate per (region, track) with a
// positive recruit count. ReleaseID stays empty until a release persists it.
func (e *Evaluator) Evaluate(ctx context.Context, examID string) ([]exam.PassCutSnapshot, error) {
	preds, err := e.pred.Predict(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	quotas, err := e.cfg.Quotas(examID)
	if err != nil {
		return nil, fmt.Errorf("load quotas: %w", err)
	}
	byRegion := map[string]exam.RegionQuota{}
	for _, q := range quotas {
		byRegion[q.Region] = q
	}

	out := make([]exam.PassCutSnapshot, 0, len(preds))
	for _, p := range preds {
		out = append(out, e.evaluateOne(ctx, examID, byRegion[p.Region], p))
	}
	return out, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, examID string, q exam.RegionQuota, p Prediction) exam.PassCutSnapshot {
	snap := exam.PassCutSnapshot{
		Region:           p.Region,
		ExamType:         p.ExamType,
		ParticipantCount: p.ParticipantCount,
		RecruitCount:     p.RecruitCount,
		StabilityScore:   1.0,
	}

	if q.ApplicantCount == nil {
		snap.Status = exam.StatusMissingApplicantCount
		return snap
	}
	snap.ApplicantCount = *q.ApplicantCount
	if snap.ApplicantCount > 0 {
		snap.CoverageRate = exam.Round2(float64(p.ParticipantCount) / float64(snap.ApplicantCount))
	}

	if p.ParticipantCount < e.th.MinParticipants || p.OneMultipleCutScore == nil {
		snap.Status = exam.StatusInsufficientSample
		return snap
	}
	if snap.CoverageRate < e.th.MinCoverage {
		snap.Status = exam.StatusLowParticipation
		return snap
	}

	snap.StabilityScore = e.stability(ctx, examID, p)
	if snap.StabilityScore < e.th.MinStability {
		snap.Status = exam.StatusUnstable
		return snap
	}

	snap.Status = exam.StatusReady
	snap.OneMultipleCutScore = p.OneMultipleCutScore
	// The 1.0× selection line doubles as the "sure" threshold.
	snap.SureScore = p.OneMultipleCutScore
	snap.LikelyScore = p.LikelyMinScore
	snap.PossibleScore = p.PossibleMinScore
	return snap
}

// stability compares the current one-multiple projection against the last
// released snapshot for the same (region, track). No history yields 1.0.
func (e *Evaluator) stability(ctx context.Context, examID string, p Prediction) float64 {
	prev, err := e.rel.LatestSnapshot(ctx, examID, p.Region, p.ExamType)
	if err != nil {
		// No usable history, including exam.ErrNotFound.
		return 1.0
	}
	if prev.OneMultipleCutScore == nil || p.OneMultipleCutScore == nil {
		return 1.0
	}
	ref := math.Max(*prev.OneMultipleCutScore, 1)
	drift := math.Abs(*p.OneMultipleCutScore - *prev.OneMultipleCutScore)
	return exam.Round2(math.Max(0, 1-drift/ref))
}
