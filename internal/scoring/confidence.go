package scoring

import "math"

// ConfidenceFloor is the conservative value reported when only one method
// contributed. Confidence is an agreement/coverage signal, not a statement
// about score validity, so a lone method never reports high confidence.
const ConfidenceFloor = 0.35

// methodCount is the full complement of scoring methods.
const methodCount = 3

// EstimateConfidence derives a confidence value in [0, 1] from the available
// method scores: higher when more methods reported and when their scores
// agree. scaleMax normalizes the spread.
func EstimateConfidence(scores []MethodScore, scaleMax float64) float64 {
	var values []float64
	for _, ms := range scores {
		if ms.Available {
			values = append(values, ms.Score)
		}
	}
	if len(values) <= 1 {
		return ConfidenceFloor
	}

	coverage := float64(len(values)) / methodCount
	agreement := 1.0 - normalizedStddev(values, scaleMax)
	return clamp(coverage*agreement, ConfidenceFloor, 1.0)
}

// normalizedStddev maps the population stddev onto [0, 1] using half the
// product scale as the worst plausible spread.
func normalizedStddev(values []float64, scaleMax float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return clamp(math.Sqrt(variance)/(scaleMax/2), 0, 1)
}
