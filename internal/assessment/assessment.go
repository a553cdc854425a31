package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Revenue tier labels accepted on submission. Anything else normalizes to
// BucketUnknown during extraction.
const (
	RevenueNone       = "none"
	RevenuePre        = "pre-revenue"
	RevenueUnder10k   = "under-10k"
	Revenue10kTo100k  = "10k-100k"
	Revenue100kTo500k = "100k-500k"
	RevenueOver500k   = "over-500k"
)

const (
	TeamSolo   = "solo"
	TeamSmall  = "2-3"
	TeamMedium = "4-10"
	TeamLarge  = "over-10"
)

const (
	GoalUnder100k  = "under-100k"
	Goal100kTo500k = "100k-500k"
	Goal500kTo2m   = "500k-2m"
	GoalOver2m     = "over-2m"
)

const (
	TimelineImmediate = "immediate"
	TimelineQuarter   = "3-months"
	TimelineHalfYear  = "6-months"
	TimelineExploring = "exploring"
)

// BucketUnknown is the sentinel for unanswered or unrecognized enum answers.
const BucketUnknown = "unknown"

// Input is the immutable record of raw answers from a single submission.
// Boolean answers are pointers: nil means the question was not answered,
// which is distinct from answering "no". A resubmission creates a new Input;
// records are never edited in place.
type Input struct {
	ID          uuid.UUID `json:"id"`
	SubmittedBy string    `json:"submitted_by,omitempty"`

	// Yes/no questions
	Prototype       *bool `json:"prototype,omitempty"`
	ExternalCapital *bool `json:"external_capital,omitempty"`
	FullTimeTeam    *bool `json:"full_time_team,omitempty"`
	TermSheets      *bool `json:"term_sheets,omitempty"`
	CapTable        *bool `json:"cap_table,omitempty"`

	// Tier questions
	Revenue     string `json:"revenue,omitempty"`
	TeamSize    string `json:"team_size,omitempty"`
	FundingGoal string `json:"funding_goal,omitempty"`
	Timeline    string `json:"timeline,omitempty"`

	// Free text
	PitchSummary    string `json:"pitch_summary,omitempty"`
	TractionSummary string `json:"traction_summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Features is the normalized, versioned view of an Input that the scoring
// pipeline consumes. It is derived, never stored as source of truth, and
// recomputed whenever extraction logic changes version.
type Features struct {
	HasPrototype       bool `json:"has_prototype"`
	HasExternalCapital bool `json:"has_external_capital"`
	HasFullTimeTeam    bool `json:"has_full_time_team"`
	HasTermSheets      bool `json:"has_term_sheets"`
	HasCapTable        bool `json:"has_cap_table"`

	Revenue     string `json:"revenue"`
	TeamSize    string `json:"team_size"`
	FundingGoal string `json:"funding_goal"`
	Timeline    string `json:"timeline"`

	PitchWordCount    int `json:"pitch_word_count"`
	TractionWordCount int `json:"traction_word_count"`

	// Completeness is the fraction of questionnaire answers actually
	// provided, 0.0–1.0. Remote scoring methods get down-weighted on
	// sparse submissions.
	Completeness float64 `json:"completeness"`

	ExtractionVersion string `json:"extraction_version"`
}
