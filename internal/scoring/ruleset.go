package scoring

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRuleSet marks a malformed or zero-weight rule set. This is the
// one fatal error of a scoring run: there is no safe default to fall back to.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// RuleSet is the versioned, externally loaded scoring configuration:
// per-dimension weights plus bucket-token point mappings. The pipeline
// treats a loaded RuleSet as read-only.
type RuleSet struct {
	Version     string          `yaml:"version"`
	ScaleMax    float64         `yaml:"scale_max"`
	SubscoreMax float64         `yaml:"subscore_max"`
	Dimensions  []DimensionRule `yaml:"dimensions"`
}

// DimensionRule maps feature tokens to points for one named dimension.
type DimensionRule struct {
	Name   string             `yaml:"name"`
	Weight float64            `yaml:"weight"`
	Points map[string]float64 `yaml:"points"`
}

// TotalWeight returns the sum of all dimension weights.
func (rs *RuleSet) TotalWeight() float64 {
	var total float64
	for _, d := range rs.Dimensions {
		total += d.Weight
	}
	return total
}

// Validate rejects rule sets the scorer cannot safely use.
func (rs *RuleSet) Validate() error {
	if rs.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidRuleSet)
	}
	if len(rs.Dimensions) == 0 {
		return fmt.Errorf("%w: no dimensions", ErrInvalidRuleSet)
	}
	if rs.ScaleMax <= 0 || rs.SubscoreMax <= 0 {
		return fmt.Errorf("%w: scale_max and subscore_max must be positive", ErrInvalidRuleSet)
	}
	seen := make(map[string]bool, len(rs.Dimensions))
	for _, d := range rs.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("%w: dimension with empty name", ErrInvalidRuleSet)
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate dimension %q", ErrInvalidRuleSet, d.Name)
		}
		seen[d.Name] = true
		if d.Weight < 0 {
			return fmt.Errorf("%w: negative weight on %q", ErrInvalidRuleSet, d.Name)
		}
	}
	if rs.TotalWeight() <= 0 {
		return fmt.Errorf("%w: total weight %.4f, must be > 0", ErrInvalidRuleSet, rs.TotalWeight())
	}
	return nil
}

// LoadRuleSet reads and validates a rule set document from disk.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	rs := &RuleSet{}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// DefaultRuleSet returns the built-in ruleset used when no external document
// is configured.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Version:     "ruleset-v3",
		ScaleMax:    999,
		SubscoreMax: 10,
		Dimensions: []DimensionRule{
			{
				Name:   "business_idea",
				Weight: 0.25,
				Points: map[string]float64{
					"prototype":          4,
					"pitch:detailed":     3,
					"pitch:brief":        1.5,
					"timeline:immediate": 2,
					"timeline:3-months":  1.5,
					"timeline:6-months":  1,
				},
			},
			{
				Name:   "financials",
				Weight: 0.30,
				Points: map[string]float64{
					"revenue:over-500k":       5,
					"revenue:100k-500k":       4,
					"revenue:10k-100k":        3,
					"revenue:under-10k":       2,
					"revenue:pre-revenue":     1,
					"cap-table":               2.5,
					"funding-goal:under-100k": 1,
					"funding-goal:100k-500k":  1.5,
					"funding-goal:500k-2m":    2,
					"funding-goal:over-2m":    1.5,
				},
			},
			{
				Name:   "team",
				Weight: 0.25,
				Points: map[string]float64{
					"full-time-team":    4,
					"team-size:2-3":     2,
					"team-size:4-10":    3,
					"team-size:over-10": 2.5,
					"team-size:solo":    0.5,
					"external-capital":  2,
				},
			},
			{
				Name:   "traction",
				Weight: 0.20,
				Points: map[string]float64{
					"revenue:over-500k":  3,
					"revenue:100k-500k":  2.5,
					"revenue:10k-100k":   2,
					"term-sheets":        3,
					"external-capital":   2,
					"traction:described": 2,
				},
			},
		},
	}
}
