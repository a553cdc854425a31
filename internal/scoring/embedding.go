package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/llm"
)

// Reference anchor texts. The embedding scorer positions each assessment
// between these two poles by cosine similarity.
const (
	anchorInvestable = "A startup with a working product, recurring revenue, a committed " +
		"full-time founding team, external investor interest, and clear near-term funding plans."
	anchorNotReady = "An early idea with no prototype, no revenue, a single part-time founder, " +
		"no investor contact, and no concrete plan for raising capital."
)

// EmbeddingScorer scores an assessment by similarity between its content
// embedding and two reference anchors. Anchor vectors are embedded lazily
// and cached after the first success; a failed attempt is retried on the
// next scoring run so a transient provider outage does not pin the method
// unavailable.
type EmbeddingScorer struct {
	embedder llm.Embedder
	scaleMax float64
	timeout  time.Duration

	anchorMu  sync.Mutex
	posAnchor []float32
	negAnchor []float32
}

func NewEmbeddingScorer(embedder llm.Embedder, scaleMax float64, timeout time.Duration) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder, scaleMax: scaleMax, timeout: timeout}
}

func (s *EmbeddingScorer) Name() string { return MethodEmbedding }

func (s *EmbeddingScorer) Score(ctx context.Context, in *assessment.Input, f assessment.Features) MethodScore {
	if s.embedder == nil {
		return Unavailable(MethodEmbedding, fmt.Errorf("no embedding provider configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.ensureAnchors(ctx); err != nil {
		return Unavailable(MethodEmbedding, err)
	}

	vec, err := s.embedder.Embed(ctx, s.content(in, f))
	if err != nil {
		return Unavailable(MethodEmbedding, err)
	}

	simPos, err := cosine(vec, s.posAnchor)
	if err != nil {
		return Unavailable(MethodEmbedding, err)
	}
	simNeg, err := cosine(vec, s.negAnchor)
	if err != nil {
		return Unavailable(MethodEmbedding, err)
	}

	// Margin in [-2, 2] mapped onto the product scale.
	margin := simPos - simNeg
	score := clamp((margin+2)/4*s.scaleMax, 0, s.scaleMax)

	return MethodScore{
		Method:    MethodEmbedding,
		Score:     score,
		Rationale: fmt.Sprintf("similarity margin %.3f against reference anchors", margin),
		Available: true,
	}
}

func (s *EmbeddingScorer) ensureAnchors(ctx context.Context) error {
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()
	if s.posAnchor != nil {
		return nil
	}

	pos, err := s.embedder.Embed(ctx, anchorInvestable)
	if err != nil {
		return fmt.Errorf("embed positive anchor: %w", err)
	}
	neg, err := s.embedder.Embed(ctx, anchorNotReady)
	if err != nil {
		return fmt.Errorf("embed negative anchor: %w", err)
	}
	s.posAnchor, s.negAnchor = pos, neg
	return nil
}

func (s *EmbeddingScorer) content(in *assessment.Input, f assessment.Features) string {
	parts := []string{strings.Join(f.Tokens(), ", ")}
	if in.PitchSummary != "" {
		parts = append(parts, in.PitchSummary)
	}
	if in.TractionSummary != "" {
		parts = append(parts, in.TractionSummary)
	}
	return strings.Join(parts, "\n")
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
