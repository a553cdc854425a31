package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/llm"
)

// FallbackTemplateVersion tags explanations built from the deterministic
// template so the fallback path is observable and testable.
const FallbackTemplateVersion = "fallback-v1"

// Explanations is the structured narrative attached to every score. All
// collections are guaranteed non-empty: when the generative call fails the
// deterministic template fills them from the rule subscores.
type Explanations struct {
	Overview            string              `json:"overview"`
	Strengths           []string            `json:"strengths"`
	Weaknesses          []string            `json:"weaknesses"`
	Dimensions          map[string]string   `json:"dimensions"`
	ContributingPhrases map[string][]string `json:"contributing_phrases"`
	TemplateVersion     string              `json:"template_version,omitempty"`
}

// Explainer generates explanations, preferring the language model and
// falling back to the rule-derived template. The fallback-first design means
// a caller never sees a raw provider error here.
type Explainer struct {
	gen     llm.TextGenerator
	timeout time.Duration
}

func NewExplainer(gen llm.TextGenerator, timeout time.Duration) *Explainer {
	return &Explainer{gen: gen, timeout: timeout}
}

type generatedNarrative struct {
	Overview   string   `json:"overview"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Explain builds the complete explanation structure for a scoring run.
func (e *Explainer) Explain(ctx context.Context, in *assessment.Input, f assessment.Features, rules RuleOutcome, calibrated float64) Explanations {
	ex := buildFallback(f, rules, calibrated)

	if e.gen == nil {
		return ex
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.gen.GenerateJSON(ctx, e.buildPrompt(in, rules, calibrated))
	if err != nil {
		return ex
	}
	var n generatedNarrative
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return ex
	}
	// Only adopt generated parts that are actually present; anything missing
	// keeps its template value so the structure stays complete.
	if n.Overview != "" {
		ex.Overview = n.Overview
		ex.TemplateVersion = ""
	}
	if len(n.Strengths) > 0 {
		ex.Strengths = n.Strengths
	}
	if len(n.Weaknesses) > 0 {
		ex.Weaknesses = n.Weaknesses
	}
	return ex
}

func (e *Explainer) buildPrompt(in *assessment.Input, rules RuleOutcome, calibrated float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A startup scored %.0f/999 on investment readiness. Dimension subscores (0-10):\n", calibrated)
	for _, d := range rules.Dimensions {
		fmt.Fprintf(&b, "- %s: %.1f\n", d.Name, d.Score)
	}
	if in.PitchSummary != "" {
		fmt.Fprintf(&b, "Pitch: %s\n", in.PitchSummary)
	}
	b.WriteString(`Write investor-facing feedback. Reply with JSON only: {"overview": "...", "strengths": ["..."], "weaknesses": ["..."]}`)
	return b.String()
}

// dimensionNarratives are the versioned fallback texts, keyed by dimension
// then by band. An explicit table rather than a hidden branch so tests can
// assert on the fallback path deterministically.
var dimensionNarratives = map[string]map[string]string{
	"business_idea": {
		"high": "The business idea is well developed, with concrete signals of validation.",
		"mid":  "The business idea shows promise but needs sharper validation.",
		"low":  "The business idea is still at the concept stage and needs substance before investor conversations.",
	},
	"financials": {
		"high": "Financial foundations look investor-ready, with revenue and structure in place.",
		"mid":  "Financial basics are forming, but revenue or structure gaps remain.",
		"low":  "Financial readiness is minimal; revenue evidence and a cap table are prerequisites for most investors.",
	},
	"team": {
		"high": "The team profile is strong: committed, appropriately sized, and backed.",
		"mid":  "The team has a core in place but lacks depth or full-time commitment.",
		"low":  "The team is the biggest gap; investors fund teams before ideas.",
	},
	"traction": {
		"high": "Traction signals are compelling and externally validated.",
		"mid":  "Some traction exists; converting it into repeatable growth is the next step.",
		"low":  "Traction is not yet demonstrable; even small proof points would materially change the picture.",
	},
}

const (
	strongBand = 7.0
	weakBand   = 4.0
)

func buildFallback(f assessment.Features, rules RuleOutcome, calibrated float64) Explanations {
	ex := Explanations{
		Dimensions:          make(map[string]string, len(rules.Dimensions)),
		ContributingPhrases: make(map[string][]string),
		TemplateVersion:     FallbackTemplateVersion,
	}

	dims := make([]DimensionSubscore, len(rules.Dimensions))
	copy(dims, rules.Dimensions)
	sort.Slice(dims, func(i, j int) bool { return dims[i].Score > dims[j].Score })

	for _, d := range rules.Dimensions {
		band := "mid"
		switch {
		case d.Score >= strongBand:
			band = "high"
		case d.Score <= weakBand:
			band = "low"
		}
		if text, ok := dimensionNarratives[d.Name][band]; ok {
			ex.Dimensions[d.Name] = text
		} else {
			ex.Dimensions[d.Name] = fmt.Sprintf("%s scored %.1f of %.0f.", d.Name, d.Score, d.Max)
		}
	}

	for _, d := range dims {
		if d.Score >= strongBand {
			ex.Strengths = append(ex.Strengths, fmt.Sprintf("Strong %s (%.1f/%.0f)", strings.ReplaceAll(d.Name, "_", " "), d.Score, d.Max))
		}
		if d.Score <= weakBand {
			ex.Weaknesses = append(ex.Weaknesses, fmt.Sprintf("Underdeveloped %s (%.1f/%.0f)", strings.ReplaceAll(d.Name, "_", " "), d.Score, d.Max))
		}
	}
	// The structure contract: strengths and weaknesses are never empty. When
	// no dimension clears a band, the best and worst stand in.
	if len(ex.Strengths) == 0 {
		if len(dims) > 0 {
			best := dims[0]
			ex.Strengths = append(ex.Strengths, fmt.Sprintf("Relative strength in %s (%.1f/%.0f)", strings.ReplaceAll(best.Name, "_", " "), best.Score, best.Max))
		} else {
			ex.Strengths = append(ex.Strengths, "Submission received; answer more questions to surface strengths.")
		}
	}
	if len(ex.Weaknesses) == 0 {
		if len(dims) > 0 {
			worst := dims[len(dims)-1]
			ex.Weaknesses = append(ex.Weaknesses, fmt.Sprintf("Most room to grow in %s (%.1f/%.0f)", strings.ReplaceAll(worst.Name, "_", " "), worst.Score, worst.Max))
		} else {
			ex.Weaknesses = append(ex.Weaknesses, "Not enough answered questions to assess gaps.")
		}
	}

	for _, tok := range f.Tokens() {
		dim := contributingDimension(tok)
		if dim != "" {
			ex.ContributingPhrases[dim] = append(ex.ContributingPhrases[dim], tok)
		}
	}

	ex.Overview = fmt.Sprintf("Overall readiness score %.0f of 999.", calibrated)
	if len(dims) > 0 {
		ex.Overview = fmt.Sprintf(
			"Overall readiness score %.0f of 999. Strongest area: %s. Primary gap: %s.",
			calibrated,
			strings.ReplaceAll(dims[0].Name, "_", " "),
			strings.ReplaceAll(dims[len(dims)-1].Name, "_", " "),
		)
	}
	return ex
}

func contributingDimension(token string) string {
	switch {
	case token == "prototype" || strings.HasPrefix(token, "pitch:") || strings.HasPrefix(token, "timeline:"):
		return "business_idea"
	case strings.HasPrefix(token, "revenue:") || token == "cap-table" || strings.HasPrefix(token, "funding-goal:"):
		return "financials"
	case token == "full-time-team" || strings.HasPrefix(token, "team-size:"):
		return "team"
	case token == "term-sheets" || token == "external-capital" || strings.HasPrefix(token, "traction:"):
		return "traction"
	}
	return ""
}
