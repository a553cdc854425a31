package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/events"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/store"
)

// Scorer is the slice of the engine the handlers need.
type Scorer interface {
	Score(ctx context.Context, in *assessment.Input) (*scoring.BlendedScoreResult, error)
}

// Handlers bundles the dependencies behind the job type handlers.
type Handlers struct {
	store  store.Store
	scorer Scorer
	events events.Client
	logger *slog.Logger
}

func NewHandlers(s store.Store, scorer Scorer, ev events.Client, logger *slog.Logger) *Handlers {
	return &Handlers{store: s, scorer: scorer, events: ev, logger: logger}
}

// NewRegistry returns a registry with every known job type wired.
func (h *Handlers) NewRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(store.JobRescore, h.Rescore); err != nil {
		return nil, err
	}
	if err := r.Register(store.JobReportGeneration, h.GenerateReport); err != nil {
		return nil, err
	}
	if err := r.Register(store.JobDataSync, h.DataSync); err != nil {
		return nil, err
	}
	return r, nil
}

// Rescore runs the full scoring pipeline for the assessment named in the job
// payload and persists a new result. Replaying the job is safe: results are
// append-only and the newest one wins.
func (h *Handlers) Rescore(ctx context.Context, job *store.Job) error {
	assessmentID, err := payloadID(job, "assessment_id")
	if err != nil {
		return err
	}

	in, err := h.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}

	result, err := h.scorer.Score(ctx, in)
	if err != nil {
		return fmt.Errorf("score assessment %s: %w", assessmentID, err)
	}

	if err := h.store.SaveScoreResult(ctx, result); err != nil {
		return fmt.Errorf("save score result: %w", err)
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectScoreCompleted(assessmentID.String()), events.ScoreCompletedEvent{
			AssessmentID:    assessmentID.String(),
			FinalScore:      result.FinalScore,
			CalibratedScore: result.CalibratedScore,
			Confidence:      result.Confidence,
			RuleSetVersion:  result.Versions.RuleSet,
		})
	}
	return nil
}

// GenerateReport renders a plain-text readiness report from the latest score
// result and publishes it for downstream delivery.
func (h *Handlers) GenerateReport(ctx context.Context, job *store.Job) error {
	assessmentID, err := payloadID(job, "assessment_id")
	if err != nil {
		return err
	}

	result, err := h.store.GetLatestScoreResult(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("load score result for %s: %w", assessmentID, err)
	}

	report := renderReport(result)
	if h.events != nil {
		_ = h.events.Publish(events.SubjectReportGenerated(assessmentID.String()), events.ReportGeneratedEvent{
			AssessmentID: assessmentID.String(),
			Report:       report,
			GeneratedAt:  time.Now().UTC(),
		})
	}
	h.logger.Info("report generated", "assessment_id", assessmentID, "bytes", len(report))
	return nil
}

// DataSync pushes the latest score for an assessment to the CRM bridge
// subject. Consumers own the actual CRM write.
func (h *Handlers) DataSync(ctx context.Context, job *store.Job) error {
	assessmentID, err := payloadID(job, "assessment_id")
	if err != nil {
		return err
	}

	result, err := h.store.GetLatestScoreResult(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("load score result for %s: %w", assessmentID, err)
	}

	if h.events == nil {
		return fmt.Errorf("data sync requires an event client")
	}
	return h.events.Publish(events.SubjectCRMSync(), events.CRMSyncEvent{
		AssessmentID:    assessmentID.String(),
		CalibratedScore: result.CalibratedScore,
		SyncedAt:        time.Now().UTC(),
	})
}

// SubscribeRescoreRequests listens for external rescore requests on the
// broker and turns each one into a queued rescore job. Malformed requests
// are logged and dropped.
func (h *Handlers) SubscribeRescoreRequests(maxAttempts int) error {
	if h.events == nil {
		return fmt.Errorf("rescore subscription requires an event client")
	}
	return h.events.Subscribe(events.SubjectRescoreRequest, func(subject string, data []byte) {
		var req events.RescoreRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			h.logger.Warn("malformed rescore request", "error", err)
			return
		}
		id, err := uuid.Parse(req.AssessmentID)
		if err != nil {
			h.logger.Warn("malformed rescore request", "assessment_id", req.AssessmentID, "error", err)
			return
		}

		job := &store.Job{
			Type:        store.JobRescore,
			Payload:     map[string]interface{}{"assessment_id": id.String()},
			Priority:    req.Priority,
			MaxAttempts: maxAttempts,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.store.EnqueueJob(ctx, job); err != nil {
			h.logger.Error("enqueue rescore job", "assessment_id", req.AssessmentID, "error", err)
			return
		}
		h.logger.Info("rescore requested", "assessment_id", req.AssessmentID, "job_id", job.ID, "reason", req.Reason)
	})
}

func payloadID(job *store.Job, key string) (uuid.UUID, error) {
	raw, ok := job.Payload[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("job payload missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("job payload %q is not a string", key)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("job payload %q: %w", key, err)
	}
	return id, nil
}

func renderReport(r *scoring.BlendedScoreResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Investment Readiness Report\n")
	fmt.Fprintf(&b, "Assessment: %s\n", r.AssessmentID)
	fmt.Fprintf(&b, "Score: %.0f (confidence %.0f%%)\n\n", r.CalibratedScore, r.Confidence*100)
	fmt.Fprintf(&b, "%s\n\n", r.Explanations.Overview)
	for _, d := range r.Dimensions {
		fmt.Fprintf(&b, "- %s: %.1f/10\n", d.Name, d.Score)
	}
	if len(r.Explanations.Strengths) > 0 {
		fmt.Fprintf(&b, "\nStrengths:\n")
		for _, s := range r.Explanations.Strengths {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(r.Explanations.Weaknesses) > 0 {
		fmt.Fprintf(&b, "\nAreas to improve:\n")
		for _, w := range r.Explanations.Weaknesses {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
