package assessment

import "strings"

// ExtractionVersion tags every Features value so historical score records
// stay interpretable as extraction logic evolves.
const ExtractionVersion = "extract-v2"

// detailedPitchWords is the word count at which a pitch counts as detailed
// rather than brief for rule tokens.
const detailedPitchWords = 50

var (
	revenueTiers = map[string]bool{
		RevenueNone: true, RevenuePre: true, RevenueUnder10k: true,
		Revenue10kTo100k: true, Revenue100kTo500k: true, RevenueOver500k: true,
	}
	teamTiers = map[string]bool{
		TeamSolo: true, TeamSmall: true, TeamMedium: true, TeamLarge: true,
	}
	goalTiers = map[string]bool{
		GoalUnder100k: true, Goal100kTo500k: true, Goal500kTo2m: true, GoalOver2m: true,
	}
	timelineTiers = map[string]bool{
		TimelineImmediate: true, TimelineQuarter: true, TimelineHalfYear: true, TimelineExploring: true,
	}
)

// Extract normalizes a raw Input into Features. It is pure and total:
// missing or unrecognized answers become the unknown sentinel, never an
// error. The same Input always yields the same Features.
func Extract(in *Input) Features {
	answered := 0
	const total = 10

	f := Features{ExtractionVersion: ExtractionVersion}

	boolAnswers := []struct {
		src *bool
		dst *bool
	}{
		{in.Prototype, &f.HasPrototype},
		{in.ExternalCapital, &f.HasExternalCapital},
		{in.FullTimeTeam, &f.HasFullTimeTeam},
		{in.TermSheets, &f.HasTermSheets},
		{in.CapTable, &f.HasCapTable},
	}
	for _, a := range boolAnswers {
		if a.src != nil {
			*a.dst = *a.src
			answered++
		}
	}

	f.Revenue = normalizeTier(in.Revenue, revenueTiers, &answered)
	f.TeamSize = normalizeTier(in.TeamSize, teamTiers, &answered)
	f.FundingGoal = normalizeTier(in.FundingGoal, goalTiers, &answered)
	f.Timeline = normalizeTier(in.Timeline, timelineTiers, &answered)

	f.PitchWordCount = wordCount(in.PitchSummary)
	f.TractionWordCount = wordCount(in.TractionSummary)
	if f.PitchWordCount > 0 {
		answered++
	}

	f.Completeness = float64(answered) / float64(total)
	return f
}

// Tokens flattens Features into the bucket tokens that rule sets map to
// points. Boolean tokens appear only when true; tier tokens always appear,
// including the unknown sentinel.
func (f Features) Tokens() []string {
	var tokens []string
	if f.HasPrototype {
		tokens = append(tokens, "prototype")
	}
	if f.HasExternalCapital {
		tokens = append(tokens, "external-capital")
	}
	if f.HasFullTimeTeam {
		tokens = append(tokens, "full-time-team")
	}
	if f.HasTermSheets {
		tokens = append(tokens, "term-sheets")
	}
	if f.HasCapTable {
		tokens = append(tokens, "cap-table")
	}

	tokens = append(tokens,
		"revenue:"+f.Revenue,
		"team-size:"+f.TeamSize,
		"funding-goal:"+f.FundingGoal,
		"timeline:"+f.Timeline,
	)

	switch {
	case f.PitchWordCount >= detailedPitchWords:
		tokens = append(tokens, "pitch:detailed")
	case f.PitchWordCount > 0:
		tokens = append(tokens, "pitch:brief")
	}
	if f.TractionWordCount > 0 {
		tokens = append(tokens, "traction:described")
	}
	return tokens
}

func normalizeTier(v string, valid map[string]bool, answered *int) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return BucketUnknown
	}
	// An answered-but-unrecognized tier still counts toward completeness;
	// the shape was ambiguous, not absent.
	*answered++
	if !valid[v] {
		return BucketUnknown
	}
	return v
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
