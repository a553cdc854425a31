package scoring

import (
	"fmt"
	"math"
)

// BaseWeights is the configuration-driven default weight split across the
// three methods. Weights must sum to 1.0 (±0.001 tolerance).
type BaseWeights struct {
	Rule       float64 `yaml:"rule"`
	Generative float64 `yaml:"generative"`
	Embedding  float64 `yaml:"embedding"`
}

// DefaultBaseWeights returns the product-default split.
func DefaultBaseWeights() BaseWeights {
	return BaseWeights{Rule: 0.3, Generative: 0.4, Embedding: 0.3}
}

func (w BaseWeights) Sum() float64 { return w.Rule + w.Generative + w.Embedding }

func (w BaseWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("base weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	for _, v := range []float64{w.Rule, w.Generative, w.Embedding} {
		if v < 0 {
			return fmt.Errorf("negative base weight: %f", v)
		}
	}
	return nil
}

func (w BaseWeights) forMethod(method string) float64 {
	switch method {
	case MethodRule:
		return w.Rule
	case MethodGenerative:
		return w.Generative
	case MethodEmbedding:
		return w.Embedding
	default:
		return 0
	}
}

// CombinerConfig tunes the dynamic weight adjustments. The curves are
// tunable; the invariant that final weights sum to 1 over available methods
// is not.
type CombinerConfig struct {
	Base BaseWeights `yaml:"base"`

	// Below this completeness, remote weights shrink proportionally and the
	// rule scorer absorbs the difference through renormalization.
	CompletenessPivot float64 `yaml:"completeness_pivot"`

	// Remote scores further than this (product-scale units) from the rule
	// score are treated as outliers.
	DivergenceThreshold float64 `yaml:"divergence_threshold"`

	// Multiplier applied to an outlier's weight, in (0, 1].
	OutlierDamping float64 `yaml:"outlier_damping"`
}

func DefaultCombinerConfig() CombinerConfig {
	return CombinerConfig{
		Base:                DefaultBaseWeights(),
		CompletenessPivot:   0.6,
		DivergenceThreshold: 250,
		OutlierDamping:      0.5,
	}
}

// Blend is the weight combiner's output.
type Blend struct {
	Score   float64            `json:"score"`
	Weights map[string]float64 `json:"weights"`
}

// Combine blends the available method scores into one. Unavailable methods
// get weight 0 and the remaining weights are renormalized so they always sum
// to 1 over available methods, including the degenerate single-method case.
func Combine(scores []MethodScore, completeness float64, cfg CombinerConfig) Blend {
	weights := make(map[string]float64, len(scores))

	var ruleScore float64
	ruleAvailable := false
	for _, ms := range scores {
		if ms.Method == MethodRule && ms.Available {
			ruleScore = ms.Score
			ruleAvailable = true
		}
	}

	for _, ms := range scores {
		if !ms.Available {
			weights[ms.Method] = 0
			continue
		}
		w := cfg.Base.forMethod(ms.Method)
		if ms.Method != MethodRule {
			// Sparse input hurts the remote methods most.
			if cfg.CompletenessPivot > 0 && completeness < cfg.CompletenessPivot {
				w *= completeness / cfg.CompletenessPivot
			}
			// Outlier damping against the deterministic backstop.
			if ruleAvailable && math.Abs(ms.Score-ruleScore) > cfg.DivergenceThreshold {
				w *= cfg.OutlierDamping
			}
		}
		weights[ms.Method] = w
	}

	var total float64
	available := 0
	for _, ms := range scores {
		if ms.Available {
			total += weights[ms.Method]
			available++
		}
	}

	if available == 0 {
		return Blend{Weights: weights}
	}

	if total <= 0 {
		// All adjusted weights collapsed to zero; fall back to an even split
		// so the sum-to-one invariant holds.
		for _, ms := range scores {
			if ms.Available {
				weights[ms.Method] = 1.0 / float64(available)
			}
		}
		total = 1.0
	} else {
		for _, ms := range scores {
			if ms.Available {
				weights[ms.Method] /= total
			}
		}
	}

	var blended float64
	for _, ms := range scores {
		if ms.Available {
			blended += weights[ms.Method] * ms.Score
		}
	}
	return Blend{Score: blended, Weights: weights}
}
