// Package stats computes rank, percentile and population averages for one
// submission against its peers, live from current data.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Population bases reported back to the caller.
const (
	BasisAll      = "all"               // target failed a subject: ranked against everyone
	BasisNoFailed = "no_failed_subject" // target passed: ranked against other passers
)

// SubjectStat is the ranking block for one subject or for the aggregate.
type SubjectStat struct {
	Subject      string  `json:"subject"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	Participants int     `json:"participants"`
	Average      float64 `json:"average"`
	Highest      float64 `json:"highest"`
	Lowest       float64 `json:"lowest"`
	Top10Average float64 `json:"top10_average"`
	Top30Average float64 `json:"top30_average"`
	TopPercent   float64 `json:"top_percent"`
	Percentile   float64 `json:"percentile"`
}

// Result is the full statistics payload for one submission.
type Result struct {
	Basis    string        `json:"basis"`
	Overall  SubjectStat   `json:"overall"`
	Subjects []SubjectStat `json:"subjects"`
}

// Service resolves peer populations through the store's population contract.
type Service struct {
	pop interface {
		Population(ctx context.Context, f store.PopulationFilter) ([]store.PopulationEntry, error)
	}
}

func NewService(pop store.SubmissionStore) *Service {
	return &Service{pop: pop}
}

// ForSubmission ranks the submission against its peer population. A target
// with a failed subject competes against every non-suspicious submission in
// its (exam, region, track); a target without one competes only against
// other non-failing submissions.
func (s *Service) ForSubmission(ctx context.Context, sub exam.Submission) (Result, error) {
	f := store.PopulationFilter{
		ExamID:        sub.ExamID,
		ExamType:      sub.ExamType,
		Region:        sub.Region,
		ExcludeFailed: !sub.HasFailedSubject(),
	}
	pop, err := s.pop.Population(ctx, f)
	if err != nil {
		return Result{}, fmt.Errorf("resolve population: %w", err)
	}

	res := Result{Basis: BasisNoFailed}
	if sub.HasFailedSubject() {
		res.Basis = BasisAll
	}

	finals := make([]float64, 0, len(pop))
	for _, e := range pop {
		finals = append(finals, e.FinalScore)
	}
	res.Overall = describe("overall", sub.FinalScore, finals)

	for _, ss := range sub.Subjects {
		scores := make([]float64, 0, len(pop))
		for _, e := range pop {
			if v, ok := e.Subjects[ss.Subject]; ok {
				scores = append(scores, v)
			}
		}
		res.Subjects = append(res.Subjects, describe(ss.Subject, ss.RawScore, scores))
	}
	return res, nil
}

// describe computes one ranking block. Ranks use competition ranking: ties
// share the rank given by one plus the count of strictly higher scores.
func describe(name string, score float64, scores []float64) SubjectStat {
	st := SubjectStat{Subject: name, Score: exam.Round2(score)}
	n := len(scores)
	st.Participants = n
	if n == 0 {
		return st
	}

	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	higher := 0
	for _, v := range sorted {
		if v > score {
			higher++
		}
	}
	st.Rank = higher + 1

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	st.Average = exam.Round2(sum / float64(n))
	st.Highest = exam.Round2(sorted[0])
	st.Lowest = exam.Round2(sorted[n-1])
	st.Top10Average = exam.Round2(topMean(sorted, 0.10))
	st.Top30Average = exam.Round2(topMean(sorted, 0.30))
	st.TopPercent = exam.Round2(float64(st.Rank) / float64(n) * 100)
	st.Percentile = exam.Round2(float64(n-st.Rank+1) / float64(n) * 100)
	return st
}

// topMean is the mean of the top ceil(share×n) scores of a descending slice.
func topMean(desc []float64, share float64) float64 {
	k := int(math.Ceil(share * float64(len(desc))))
	if k < 1 {
		k = 1
	}
	if k > len(desc) {
		k = len(desc)
	}
	sum := 0.0
	for _, v := range desc[:k] {
		sum += v
	}
	return sum / float64(k)
}
