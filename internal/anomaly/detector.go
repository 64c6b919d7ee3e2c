// Package anomaly runs independent heuristics over a submission's flattened
// answer sequence. A detection never blocks acceptance; it only marks the
// submission suspicious, which excludes it from ranking and prediction
// populations.
package anomaly

import (
	"fmt"
	"math"
)

// Thresholds for the individual heuristics.
const (
	dominanceRatio = 0.85 // one answer value in ≥85% of positions
	cycleRatio     = 0.80 // short prefix cycle matching ≥80% of positions
	minCycleLen    = 2
	maxCycleLen    = 5
	entropyFloor   = 0.8  // bits; uniform guessing over 4 answers ≈ 2.0
	lowScoreRatio  = 0.10 // below the ~25% random-guessing expectation
	fastSecPer100  = 120  // under 120s for a 100-question exam
)

// Report is the outcome of one detector pass.
type Report struct {
	Suspicious bool     `json:"is_suspicious"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Detect inspects the full answer sequence (all subjects concatenated in a
// fixed order) together with the achieved total score. durationSec ≤ 0 means
// no duration was measured and the speed heuristic is skipped.
func Detect(answers []int, totalScore, maxScore float64, durationSec int) Report {
	var r Report
	if len(answers) == 0 {
		return r
	}
	if v, ratio, hit := dominantAnswer(answers); hit {
		r.add(fmt.Sprintf("single_answer_dominance: answer %d in %.0f%% of positions", v, ratio*100))
	}
	if cycle, hit := repeatingCycle(answers); hit {
		r.add(fmt.Sprintf("repeating_cycle: pattern %q", cycle))
	}
	if h := entropy(answers); h < entropyFloor {
		r.add(fmt.Sprintf("low_entropy: %.2f bits", h))
	}
	if maxScore > 0 && totalScore < lowScoreRatio*maxScore {
		r.add(fmt.Sprintf("improbably_low_score: %.1f of %.1f", totalScore, maxScore))
	}
	if durationSec > 0 {
		limit := float64(fastSecPer100) * float64(len(answers)) / 100.0
		if float64(durationSec) < limit {
			r.add(fmt.Sprintf("too_fast: %ds for %d questions", durationSec, len(answers)))
		}
	}
	return r
}

func (r *Report) add(reason string) {
	r.Suspicious = true
	r.Reasons = append(r.Reasons, reason)
}

func dominantAnswer(answers []int) (value int, ratio float64, hit bool) {
	counts := map[int]int{}
	for _, a := range answers {
		counts[a]++
	}
	best, bestN := 0, 0
	for v, n := range counts {
		if n > bestN {
			best, bestN = v, n
		}
	}
	ratio = float64(bestN) / float64(len(answers))
	return best, ratio, ratio >= dominanceRatio
}

// repeatingCycle checks whether a short prefix, repeated, reproduces most of
// the sequence. Returns the cycle literal, e.g. "1234".
func repeatingCycle(answers []int) (string, bool) {
	n := len(answers)
	for l := minCycleLen; l <= maxCycleLen && l < n; l++ {
		matches := 0
		for i := 0; i < n; i++ {
			if answers[i] == answers[i%l] {
				matches++
			}
		}
		if float64(matches)/float64(n) >= cycleRatio {
			lit := ""
			for _, a := range answers[:l] {
				lit += fmt.Sprintf("%d", a)
			}
			return lit, true
		}
	}
	return "", false
}

// entropy is the Shannon entropy in bits over the four answer values.
func entropy(answers []int) float64 {
	counts := map[int]int{}
	for _, a := range answers {
		counts[a]++
	}
	n := float64(len(answers))
	h := 0.0
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
