package scoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRuleSetValid(t *testing.T) {
	rs := DefaultRuleSet()
	if err := rs.Validate(); err != nil {
		t.Fatalf("default rule set invalid: %v", err)
	}
	if rs.ScaleMax != 999 || rs.SubscoreMax != 10 {
		t.Errorf("scales = %v/%v", rs.ScaleMax, rs.SubscoreMax)
	}
	if len(rs.Dimensions) != 4 {
		t.Errorf("dimensions = %d, want 4", len(rs.Dimensions))
	}
}

func TestLoadRuleSetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	doc := []byte(`
version: ruleset-custom
scale_max: 999
subscore_max: 10
dimensions:
  - name: business_idea
    weight: 0.5
    points:
      prototype: 6
  - name: team
    weight: 0.5
    points:
      full-time-team: 8
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	if rs.Version != "ruleset-custom" {
		t.Errorf("version = %q", rs.Version)
	}
	if rs.Dimensions[0].Points["prototype"] != 6 {
		t.Errorf("points = %v", rs.Dimensions[0].Points)
	}
}

func TestLoadRuleSetRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	doc := []byte(`
version: broken
scale_max: 999
subscore_max: 10
dimensions: []
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadRuleSet(path); !errors.Is(err, ErrInvalidRuleSet) {
		t.Fatalf("expected ErrInvalidRuleSet, got %v", err)
	}
}

func TestLoadRuleSetMissingFile(t *testing.T) {
	if _, err := LoadRuleSet(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
