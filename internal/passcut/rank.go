// Package passcut projects per-region pass-cut thresholds from the live
// score distribution and the recruitment quota, and manages official
// releases of those projections.
package passcut

import "sort"

// Band is one distinct score group of a descending distribution.
type Band struct {
	Score float64
	Count int
}

// BuildBands groups scores into distinct-score bands ordered descending.
func BuildBands(scores []float64) []Band {
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	var bands []Band
	for _, v := range sorted {
		if n := len(bands); n > 0 && bands[n-1].Score == v {
			bands[n-1].Count++
			continue
		}
		bands = append(bands, Band{Score: v, Count: 1})
	}
	return bands
}

// ScoreAtRank walks the bands accumulating counts and returns the score of
// the first band whose cumulative count reaches r. Ties at the boundary
// share the better rank's score. Returns false when r is out of range.
func ScoreAtRank(bands []Band, r int) (float64, bool) {
	if r < 1 {
		return 0, false
	}
	cum := 0
	for _, b := range bands {
		cum += b.Count
		if cum >= r {
			return b.Score, true
		}
	}
	return 0, false
}

// MinScoreInWindow returns the minimum score among the ranks start..end.
// Invalid bounds (start > end or start < 1) and windows past the population
// resolve to false rather than raising.
func MinScoreInWindow(bands []Band, start, end int) (float64, bool) {
	if start < 1 || start > end {
		return 0, false
	}
	total := 0
	for _, b := range bands {
		total += b.Count
	}
	if start > total {
		return 0, false
	}
	if end > total {
		end = total
	}
	// Bands are descending, so the window minimum sits at its last rank.
	return ScoreAtRank(bands, end)
}
