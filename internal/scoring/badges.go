package scoring

import "github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"

// MaxBadges caps how many badges one evaluation returns.
const MaxBadges = 3

// Badge is an achievement derived from a score and its features. Downstream
// of scoring; it never feeds back into the score.
type Badge struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

// badgeRule pairs a badge with its predicate. Rules are evaluated in slice
// order, which doubles as the deterministic tie-break priority.
type badgeRule struct {
	badge Badge
	match func(r *BlendedScoreResult, f assessment.Features) bool
}

var badgeRules = []badgeRule{
	{
		badge: Badge{Name: "Rising Star", Explanation: "Top-tier readiness across every dimension."},
		match: func(r *BlendedScoreResult, f assessment.Features) bool {
			if r.CalibratedScore >= 850 {
				return true
			}
			if len(r.Dimensions) == 0 {
				return false
			}
			for _, d := range r.Dimensions {
				if d.Score < d.Max {
					return false
				}
			}
			return true
		},
	},
	{
		badge: Badge{Name: "Revenue Ready", Explanation: "Meaningful recurring revenue puts you ahead of most applicants."},
		match: func(r *BlendedScoreResult, f assessment.Features) bool {
			return f.Revenue == assessment.Revenue100kTo500k || f.Revenue == assessment.RevenueOver500k
		},
	},
	{
		badge: Badge{Name: "Capital Backed", Explanation: "Raising external capital signals investor validation."},
		match: func(r *BlendedScoreResult, f assessment.Features) bool {
			return f.HasExternalCapital
		},
	},
	{
		badge: Badge{Name: "Team Builder", Explanation: "A committed full-time team of real size."},
		match: func(r *BlendedScoreResult, f assessment.Features) bool {
			return f.HasFullTimeTeam && (f.TeamSize == assessment.TeamMedium || f.TeamSize == assessment.TeamLarge)
		},
	},
	{
		badge: Badge{Name: "Prototype Pioneer", Explanation: "A working prototype moves the conversation from idea to product."},
		match: func(r *BlendedScoreResult, f assessment.Features) bool {
			return f.HasPrototype
		},
	},
	{
		badge: Badge{Name: "Deal Magnet", Explanation: "Term sheets in hand — investors are already leaning in."},
		match: func(r *BlendedScoreResult, f assessment.Features) bool {
			return f.HasTermSheets
		},
	},
}

// fallbackBadge guarantees a non-empty badge list for every evaluation.
var fallbackBadge = Badge{Name: "Starter", Explanation: "Every journey starts somewhere — keep building."}

// EvaluateBadges assigns up to MaxBadges badges for a result. Pure function;
// the caller persists the outcome.
func EvaluateBadges(r *BlendedScoreResult, f assessment.Features) []Badge {
	var badges []Badge
	for _, rule := range badgeRules {
		if rule.match(r, f) {
			badges = append(badges, rule.badge)
			if len(badges) == MaxBadges {
				break
			}
		}
	}
	if len(badges) == 0 {
		badges = append(badges, fallbackBadge)
	}
	return badges
}
