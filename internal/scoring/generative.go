package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/llm"
)

// GenerativeScorer asks a language model for a holistic readiness score.
// Network-bound; every failure mode maps to an unavailable MethodScore.
type GenerativeScorer struct {
	gen      llm.TextGenerator
	scaleMax float64
	timeout  time.Duration
}

func NewGenerativeScorer(gen llm.TextGenerator, scaleMax float64, timeout time.Duration) *GenerativeScorer {
	return &GenerativeScorer{gen: gen, scaleMax: scaleMax, timeout: timeout}
}

func (s *GenerativeScorer) Name() string { return MethodGenerative }

type generativeReply struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

func (s *GenerativeScorer) Score(ctx context.Context, in *assessment.Input, f assessment.Features) MethodScore {
	if s.gen == nil {
		return Unavailable(MethodGenerative, fmt.Errorf("no generative provider configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.GenerateJSON(ctx, s.buildPrompt(in, f))
	if err != nil {
		return Unavailable(MethodGenerative, err)
	}

	var reply generativeReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Unavailable(MethodGenerative, fmt.Errorf("malformed model reply: %w", err))
	}
	if reply.Score < 0 || reply.Score > s.scaleMax {
		return Unavailable(MethodGenerative, fmt.Errorf("model score %.1f outside 0-%.0f", reply.Score, s.scaleMax))
	}

	return MethodScore{
		Method:    MethodGenerative,
		Score:     reply.Score,
		Rationale: reply.Rationale,
		Available: true,
	}
}

func (s *GenerativeScorer) buildPrompt(in *assessment.Input, f assessment.Features) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You assess startup investment readiness. Score this startup from 0 to %.0f and explain briefly.\n\n", s.scaleMax)
	fmt.Fprintf(&b, "Signals: %s\n", strings.Join(f.Tokens(), ", "))
	if in.PitchSummary != "" {
		fmt.Fprintf(&b, "Pitch: %s\n", in.PitchSummary)
	}
	if in.TractionSummary != "" {
		fmt.Fprintf(&b, "Traction: %s\n", in.TractionSummary)
	}
	b.WriteString(`Reply with JSON only: {"score": <number>, "rationale": "<one paragraph>"}`)
	return b.String()
}
