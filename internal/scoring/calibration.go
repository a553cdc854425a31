package scoring

import (
	"fmt"
	"sort"
)

// CalibrationPoint is one knot of the piecewise-linear calibration curve.
type CalibrationPoint struct {
	In  float64 `yaml:"in"`
	Out float64 `yaml:"out"`
}

// Calibrator applies a monotonic correction curve to blended scores,
// conditioned on confidence. Monotonicity in the input score is a hard
// contract: calibration must never reorder two assessments.
type Calibrator struct {
	points   []CalibrationPoint
	shrink   float64
	scaleMax float64
}

// NewCalibrator validates and builds a calibrator. points must describe a
// non-decreasing curve; shrink in [0, 1) controls how strongly low
// confidence pulls scores toward the scale midpoint.
func NewCalibrator(points []CalibrationPoint, shrink, scaleMax float64) (*Calibrator, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("calibration curve needs at least 2 points, got %d", len(points))
	}
	if shrink < 0 || shrink >= 1 {
		return nil, fmt.Errorf("shrink must be in [0, 1), got %f", shrink)
	}
	sorted := make([]CalibrationPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].In < sorted[j].In })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].In == sorted[i-1].In {
			return nil, fmt.Errorf("duplicate calibration input %.2f", sorted[i].In)
		}
		if sorted[i].Out < sorted[i-1].Out {
			return nil, fmt.Errorf("calibration curve not monotonic at input %.2f", sorted[i].In)
		}
	}
	return &Calibrator{points: sorted, shrink: shrink, scaleMax: scaleMax}, nil
}

// DefaultCalibrator encodes the known optimism bias of the generative
// scorer: the top of the scale is pulled down slightly, the bottom is left
// nearly untouched.
func DefaultCalibrator(scaleMax float64) *Calibrator {
	c, err := NewCalibrator([]CalibrationPoint{
		{In: 0, Out: 0},
		{In: 0.5 * scaleMax, Out: 0.48 * scaleMax},
		{In: 0.8 * scaleMax, Out: 0.74 * scaleMax},
		{In: scaleMax, Out: 0.95 * scaleMax},
	}, 0.3, scaleMax)
	if err != nil {
		panic(err) // static curve, cannot fail
	}
	return c
}

// Apply maps a blended score to its calibrated value on the same scale.
// For a fixed confidence, Apply is non-decreasing in score.
func (c *Calibrator) Apply(score, confidence float64) float64 {
	score = clamp(score, c.points[0].In, c.points[len(c.points)-1].In)

	calibrated := c.interpolate(score)

	// Low confidence shrinks toward the scale midpoint. The factor is
	// constant for a given confidence, so relative ordering is preserved.
	mid := c.scaleMax / 2
	factor := 1 - c.shrink*(1-clamp(confidence, 0, 1))
	calibrated = mid + (calibrated-mid)*factor

	return clamp(calibrated, 0, c.scaleMax)
}

func (c *Calibrator) interpolate(score float64) float64 {
	for i := 1; i < len(c.points); i++ {
		lo, hi := c.points[i-1], c.points[i]
		if score <= hi.In {
			t := (score - lo.In) / (hi.In - lo.In)
			return lo.Out + t*(hi.Out-lo.Out)
		}
	}
	return c.points[len(c.points)-1].Out
}
