package scoring

import (
	"testing"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
)

func TestBadgesFallbackForEmptyResult(t *testing.T) {
	badges := EvaluateBadges(&BlendedScoreResult{}, assessment.Extract(&assessment.Input{}))
	if len(badges) != 1 || badges[0].Name != "Starter" {
		t.Errorf("badges = %v, want the Starter fallback", badges)
	}
}

func TestBadgesCapAtMax(t *testing.T) {
	yes := true
	f := assessment.Extract(&assessment.Input{
		Prototype:       &yes,
		ExternalCapital: &yes,
		FullTimeTeam:    &yes,
		TermSheets:      &yes,
		Revenue:         assessment.RevenueOver500k,
		TeamSize:        assessment.TeamMedium,
	})
	badges := EvaluateBadges(&BlendedScoreResult{CalibratedScore: 900}, f)
	if len(badges) != MaxBadges {
		t.Errorf("got %d badges, want cap %d", len(badges), MaxBadges)
	}
}

func TestBadgesDeterministicPriorityOrder(t *testing.T) {
	yes := true
	f := assessment.Extract(&assessment.Input{
		Prototype:       &yes,
		ExternalCapital: &yes,
		TermSheets:      &yes,
	})
	badges := EvaluateBadges(&BlendedScoreResult{CalibratedScore: 400}, f)
	// Rule order: Capital Backed, then Prototype Pioneer, then Deal Magnet.
	want := []string{"Capital Backed", "Prototype Pioneer", "Deal Magnet"}
	if len(badges) != len(want) {
		t.Fatalf("badges = %v", badges)
	}
	for i, name := range want {
		if badges[i].Name != name {
			t.Errorf("badge[%d] = %s, want %s", i, badges[i].Name, name)
		}
	}
}

func TestRisingStarByScoreThreshold(t *testing.T) {
	badges := EvaluateBadges(&BlendedScoreResult{CalibratedScore: 860}, assessment.Extract(&assessment.Input{}))
	if badges[0].Name != "Rising Star" {
		t.Errorf("badges = %v, want Rising Star first", badges)
	}
}

func TestRisingStarByPerfectDimensions(t *testing.T) {
	r := &BlendedScoreResult{
		CalibratedScore: 700, // below the threshold, but every dimension maxed
		Dimensions: []DimensionSubscore{
			{Name: "a", Score: 10, Max: 10},
			{Name: "b", Score: 10, Max: 10},
		},
	}
	badges := EvaluateBadges(r, assessment.Extract(&assessment.Input{}))
	if badges[0].Name != "Rising Star" {
		t.Errorf("badges = %v, want Rising Star first", badges)
	}
}

func TestRevenueReadyNeedsUpperTiers(t *testing.T) {
	low := assessment.Extract(&assessment.Input{Revenue: assessment.Revenue10kTo100k})
	for _, b := range EvaluateBadges(&BlendedScoreResult{}, low) {
		if b.Name == "Revenue Ready" {
			t.Error("10k-100k should not earn Revenue Ready")
		}
	}
	high := assessment.Extract(&assessment.Input{Revenue: assessment.Revenue100kTo500k})
	badges := EvaluateBadges(&BlendedScoreResult{}, high)
	if badges[0].Name != "Revenue Ready" {
		t.Errorf("badges = %v, want Revenue Ready", badges)
	}
}

func TestEvaluateBadgesPure(t *testing.T) {
	yes := true
	f := assessment.Extract(&assessment.Input{Prototype: &yes})
	r := &BlendedScoreResult{CalibratedScore: 500}
	first := EvaluateBadges(r, f)
	for i := 0; i < 20; i++ {
		again := EvaluateBadges(r, f)
		if len(again) != len(first) || again[0] != first[0] {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}
