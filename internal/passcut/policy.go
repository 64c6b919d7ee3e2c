package passcut

// MultiplePolicy maps a recruit count to a selection multiple. Both curves
// below are the assumed defaults; the real hiring-competition rule can be
// swapped in without touching the predictor.
type MultiplePolicy func(recruit int) float64

// DefaultPassMultiple is the outer "possible" competition range. Larger
// quotas select proportionally fewer extra candidates.
func DefaultPassMultiple(recruit int) float64 {
	switch {
	case recruit <= 0:
		return 0
	case recruit <= 10:
		return 3.0
	case recruit <= 50:
		return 2.5
	case recruit <= 100:
		return 2.0
	default:
		return 1.5
	}
}

// DefaultLikelyMultiple is the inner "likely" range, always ≥ 1.0.
func DefaultLikelyMultiple(recruit int) float64 {
	switch {
	case recruit <= 0:
		return 0
	case recruit <= 10:
		return 1.5
	case recruit <= 50:
		return 1.3
	case recruit <= 100:
		return 1.2
	default:
		return 1.1
	}
}
