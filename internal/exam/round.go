package exam

import "math"

// Round2 rounds to two decimal places, the fixed precision of every numeric
// output the service hands to callers.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
