package scoring

import (
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
)

// DimensionSubscore is one dimension's contribution to the rule score.
type DimensionSubscore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Max      float64 `json:"max"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// RuleOutcome is the deterministic rule scorer's full output: per-dimension
// subscores plus the weighted total on the product scale.
type RuleOutcome struct {
	Dimensions []DimensionSubscore `json:"dimensions"`
	Total      float64             `json:"total"`
	Version    string              `json:"version"`
}

// ScoreRules computes the rule-based score for a feature set. It is pure and
// deterministic for identical (features, ruleset) pairs, serving as the
// backstop when the remote scorers are unavailable. The only error is an
// invalid rule set.
func ScoreRules(f assessment.Features, rs *RuleSet) (RuleOutcome, error) {
	if err := rs.Validate(); err != nil {
		return RuleOutcome{}, err
	}

	tokens := make(map[string]bool)
	for _, tok := range f.Tokens() {
		tokens[tok] = true
	}

	totalWeight := rs.TotalWeight()
	outcome := RuleOutcome{
		Dimensions: make([]DimensionSubscore, 0, len(rs.Dimensions)),
		Version:    rs.Version,
	}

	var weightedSum float64
	for _, dim := range rs.Dimensions {
		var score float64
		for token, points := range dim.Points {
			if tokens[token] {
				score += points
			}
		}
		score = clamp(score, 0, rs.SubscoreMax)

		sub := DimensionSubscore{
			Name:     dim.Name,
			Score:    score,
			Max:      rs.SubscoreMax,
			Weight:   dim.Weight,
			Weighted: score * dim.Weight,
		}
		outcome.Dimensions = append(outcome.Dimensions, sub)
		weightedSum += sub.Weighted
	}

	// Weighted average on the subscore scale, then up to the product scale.
	outcome.Total = clamp(weightedSum/totalWeight/rs.SubscoreMax*rs.ScaleMax, 0, rs.ScaleMax)
	return outcome, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
