package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/events"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/store"
)

type AssessmentsHandler struct {
	store       store.Store
	events      events.Client
	maxAttempts int
}

func NewAssessmentsHandler(s store.Store, ev events.Client, maxAttempts int) *AssessmentsHandler {
	return &AssessmentsHandler{store: s, events: ev, maxAttempts: maxAttempts}
}

type SubmitAssessmentRequest struct {
	Prototype       *bool `json:"prototype,omitempty"`
	ExternalCapital *bool `json:"external_capital,omitempty"`
	FullTimeTeam    *bool `json:"full_time_team,omitempty"`
	TermSheets      *bool `json:"term_sheets,omitempty"`
	CapTable        *bool `json:"cap_table,omitempty"`

	Revenue     string `json:"revenue,omitempty"`
	TeamSize    string `json:"team_size,omitempty"`
	FundingGoal string `json:"funding_goal,omitempty"`
	Timeline    string `json:"timeline,omitempty"`

	PitchSummary    string `json:"pitch_summary,omitempty"`
	TractionSummary string `json:"traction_summary,omitempty"`

	Priority int `json:"priority,omitempty"`
}

type SubmitAssessmentResponse struct {
	AssessmentID string `json:"assessment_id"`
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
}

// Create persists the submission and queues the scoring job. Scoring is
// asynchronous: the caller gets a 202 with the job id and polls the score
// endpoint.
func (h *AssessmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SubmitAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	in := &assessment.Input{
		SubmittedBy:     r.Header.Get("X-API-Key"),
		Prototype:       req.Prototype,
		ExternalCapital: req.ExternalCapital,
		FullTimeTeam:    req.FullTimeTeam,
		TermSheets:      req.TermSheets,
		CapTable:        req.CapTable,
		Revenue:         req.Revenue,
		TeamSize:        req.TeamSize,
		FundingGoal:     req.FundingGoal,
		Timeline:        req.Timeline,
		PitchSummary:    req.PitchSummary,
		TractionSummary: req.TractionSummary,
	}

	if err := h.store.CreateAssessment(r.Context(), in); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	job := &store.Job{
		Type:        store.JobRescore,
		Payload:     map[string]interface{}{"assessment_id": in.ID.String()},
		Priority:    req.Priority,
		MaxAttempts: h.maxAttempts,
	}
	if err := h.store.EnqueueJob(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssessmentSubmitted(in.ID.String()), events.AssessmentSubmittedEvent{
			AssessmentID: in.ID.String(),
			SubmittedBy:  in.SubmittedBy,
			JobID:        job.ID.String(),
		})
	}

	writeJSON(w, http.StatusAccepted, SubmitAssessmentResponse{
		AssessmentID: in.ID.String(),
		JobID:        job.ID.String(),
		Status:       "queued",
	})
}

func (h *AssessmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assessment id"})
		return
	}

	in, err := h.store.GetAssessment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assessment not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, in)
}

type ScoreResponse struct {
	Result *scoring.BlendedScoreResult `json:"result"`
	Badges []scoring.Badge             `json:"badges"`
}

// GetScore returns the newest score result with its badges. Badges are
// recomputed on read so badge rule changes apply without a rescore.
func (h *AssessmentsHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assessment id"})
		return
	}

	in, err := h.store.GetAssessment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assessment not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.store.GetLatestScoreResult(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "score not ready"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	badges := scoring.EvaluateBadges(result, assessment.Extract(in))
	writeJSON(w, http.StatusOK, ScoreResponse{Result: result, Badges: badges})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
