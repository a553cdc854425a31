package scoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/metrics"
)

// EngineVersion tags results with the blending/calibration logic revision.
const EngineVersion = "engine-v1"

// VersionTags pins every result to the algorithm versions that produced it.
// Fixed at creation, never updated retroactively.
type VersionTags struct {
	RuleSet    string `json:"ruleset"`
	Extraction string `json:"extraction"`
	Engine     string `json:"engine"`
}

// BlendedScoreResult is the pipeline's complete, immutable output for one
// assessment. A resubmission produces a new result; results are superseded,
// never edited.
type BlendedScoreResult struct {
	AssessmentID    uuid.UUID           `json:"assessment_id"`
	FinalScore      float64             `json:"final_score"`
	CalibratedScore float64             `json:"calibrated_score"`
	Confidence      float64             `json:"confidence"`
	Dimensions      []DimensionSubscore `json:"dimensions"`
	Methods         []MethodScore       `json:"methods"`
	Weights         map[string]float64  `json:"weights"`
	Explanations    Explanations        `json:"explanations"`
	Versions        VersionTags         `json:"versions"`
	ProcessingMs    int64               `json:"processing_ms"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Engine orchestrates the hybrid scoring pipeline: extract, fan out the
// three methods, combine, estimate confidence, calibrate, explain.
type Engine struct {
	ruleset    *RuleSet
	generative Method
	embedding  Method
	combiner   CombinerConfig
	calibrator *Calibrator
	explainer  *Explainer
	logger     *slog.Logger
}

func NewEngine(ruleset *RuleSet, generative, embedding Method, combiner CombinerConfig, calibrator *Calibrator, explainer *Explainer, logger *slog.Logger) *Engine {
	return &Engine{
		ruleset:    ruleset,
		generative: generative,
		embedding:  embedding,
		combiner:   combiner,
		calibrator: calibrator,
		explainer:  explainer,
		logger:     logger,
	}
}

// Score runs the full pipeline for one assessment. The only fatal error is
// an invalid rule set; remote method failures degrade the blend, never abort
// it.
func (e *Engine) Score(ctx context.Context, in *assessment.Input) (*BlendedScoreResult, error) {
	start := time.Now()

	features := assessment.Extract(in)

	rules, err := ScoreRules(features, e.ruleset)
	if err != nil {
		metrics.ScoringRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	scores := e.fanOut(ctx, in, features, rules)

	blend := Combine(scores, features.Completeness, e.combiner)
	confidence := EstimateConfidence(scores, e.ruleset.ScaleMax)
	calibrated := e.calibrator.Apply(blend.Score, confidence)
	explanations := e.explainer.Explain(ctx, in, features, rules, calibrated)

	result := &BlendedScoreResult{
		AssessmentID:    in.ID,
		FinalScore:      blend.Score,
		CalibratedScore: calibrated,
		Confidence:      confidence,
		Dimensions:      rules.Dimensions,
		Methods:         scores,
		Weights:         blend.Weights,
		Explanations:    explanations,
		Versions: VersionTags{
			RuleSet:    e.ruleset.Version,
			Extraction: features.ExtractionVersion,
			Engine:     EngineVersion,
		},
		ProcessingMs: time.Since(start).Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}

	metrics.ScoringRuns.WithLabelValues("ok").Inc()
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	e.logger.Info("assessment scored",
		"assessment_id", in.ID,
		"final_score", result.FinalScore,
		"calibrated_score", result.CalibratedScore,
		"confidence", result.Confidence,
		"methods_available", countAvailable(scores),
		"processing_ms", result.ProcessingMs,
	)
	return result, nil
}

// fanOut invokes the remote methods concurrently. The rule score is already
// computed; each remote adapter bounds its own wait with a per-adapter
// timeout, so the total wait is the max of those, not the sum.
func (e *Engine) fanOut(ctx context.Context, in *assessment.Input, f assessment.Features, rules RuleOutcome) []MethodScore {
	ruleScore := MethodScore{
		Method:    MethodRule,
		Score:     rules.Total,
		Rationale: "deterministic rule evaluation",
		Available: true,
	}

	var (
		mu     sync.Mutex
		scores = []MethodScore{ruleScore}
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range []Method{e.generative, e.embedding} {
		if m == nil {
			continue
		}
		method := m
		g.Go(func() error {
			ms := method.Score(gctx, in, f)
			if !ms.Available {
				metrics.MethodUnavailable.WithLabelValues(method.Name()).Inc()
				e.logger.Warn("scoring method unavailable", "method", method.Name(), "error", ms.Error)
			}
			mu.Lock()
			scores = append(scores, ms)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // adapters never return errors, they return unavailable scores

	return scores
}

func countAvailable(scores []MethodScore) int {
	n := 0
	for _, ms := range scores {
		if ms.Available {
			n++
		}
	}
	return n
}
