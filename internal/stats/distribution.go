package stats

import (
	"context"
	"fmt"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Distribution bucketing: fixed-width bins of 10 over [0, 250]; the top bin
// absorbs everything at or above 240. Bars are suppressed until enough
// participants exist to not reveal individual scores.
const (
	bucketWidth    = 10
	bucketCount    = 25
	minDisplayable = 10
)

// Bucket is one histogram bar.
type Bucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// Distribution is the live score histogram for an (exam, track).
type Distribution struct {
	Collecting bool     `json:"collecting"`
	Total      int      `json:"total"`
	Buckets    []Bucket `json:"buckets,omitempty"`
}

// Distribution buckets all non-suspicious final scores for the exam/track.
func (s *Service) Distribution(ctx context.Context, examID string, t exam.ExamType) (Distribution, error) {
	pop, err := s.pop.Population(ctx, store.PopulationFilter{ExamID: examID, ExamType: t})
	if err != nil {
		return Distribution{}, fmt.Errorf("resolve population: %w", err)
	}

	d := Distribution{Total: len(pop)}
	if d.Total < minDisplayable {
		d.Collecting = true
		return d, nil
	}
	buckets := make([]Bucket, bucketCount)
	for i := range buckets {
		buckets[i].From = float64(i * bucketWidth)
		buckets[i].To = float64((i + 1) * bucketWidth)
	}
	for _, e := range pop {
		idx := int(e.FinalScore) / bucketWidth
		if idx < 0 {
			idx = 0
		}
		if idx >= bucketCount {
			idx = bucketCount - 1
		}
		buckets[idx].Count++
	}
	d.Buckets = buckets
	return d, nil
}
