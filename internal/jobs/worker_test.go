package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/events"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		PollInterval:      time.Hour, // batches driven directly in tests
		BatchSize:         10,
		JobTimeout:        time.Second,
		RetryBackoff:      0, // retried jobs become due immediately
		StuckAfter:        time.Minute,
		ReconcileInterval: time.Hour,
	}
}

type capturedEvent struct {
	Subject string
	Data    interface{}
}

type captureClient struct {
	mu     sync.Mutex
	events []capturedEvent
	subs   map[string]func(string, []byte)
}

func (c *captureClient) Publish(subject string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{Subject: subject, Data: data})
	return nil
}

func (c *captureClient) Subscribe(subject string, handler func(string, []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[string]func(string, []byte))
	}
	c.subs[subject] = handler
	return nil
}

func (c *captureClient) Close() {}

// deliver simulates an inbound broker message.
func (c *captureClient) deliver(subject string, data []byte) {
	c.mu.Lock()
	h := c.subs[subject]
	c.mu.Unlock()
	if h != nil {
		h(subject, data)
	}
}

func (c *captureClient) subjects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Subject)
	}
	return out
}

func enqueue(t *testing.T, s store.Store, typ store.JobType, maxAttempts int) uuid.UUID {
	t.Helper()
	job := &store.Job{
		Type:        typ,
		Payload:     map[string]interface{}{"assessment_id": uuid.New().String()},
		MaxAttempts: maxAttempts,
	}
	if err := s.EnqueueJob(context.Background(), job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	return job.ID
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	r := NewRegistry()
	err := r.Register(store.JobType("mystery"), func(context.Context, *store.Job) error { return nil })
	if !errors.Is(err, ErrUnknownJobType) {
		t.Fatalf("expected ErrUnknownJobType, got %v", err)
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	h := func(context.Context, *store.Job) error { return nil }
	if err := r.Register(store.JobDataSync, h); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(store.JobDataSync, h); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestWorkerCompletesJob(t *testing.T) {
	s := store.NewMemoryStore()
	ev := &captureClient{}
	r := NewRegistry()
	var calls int
	_ = r.Register(store.JobDataSync, func(context.Context, *store.Job) error {
		calls++
		return nil
	})
	w := NewWorker(s, r, ev, testConfig(), testLogger())

	id := enqueue(t, s, store.JobDataSync, 3)
	w.ProcessBatch(context.Background())

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	job, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != store.JobCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", job.Attempts)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed job missing completed_at")
	}
	subjects := ev.subjects()
	if len(subjects) != 1 || !strings.HasSuffix(subjects[0], ".completed") {
		t.Fatalf("published subjects = %v, want one *.completed", subjects)
	}
}

func TestWorkerRetriesThenFailsTerminally(t *testing.T) {
	s := store.NewMemoryStore()
	ev := &captureClient{}
	r := NewRegistry()
	var calls int
	_ = r.Register(store.JobRescore, func(context.Context, *store.Job) error {
		calls++
		return errors.New("upstream down")
	})
	w := NewWorker(s, r, ev, testConfig(), testLogger())

	id := enqueue(t, s, store.JobRescore, 3)

	// First two failures requeue; the third exhausts max_attempts.
	for i := 0; i < 3; i++ {
		w.ProcessBatch(context.Background())
	}
	// A fourth poll must find nothing: failed is terminal.
	w.ProcessBatch(context.Background())

	if calls != 3 {
		t.Fatalf("handler calls = %d, want exactly max_attempts", calls)
	}
	job, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != store.JobFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", job.Attempts)
	}
	if job.ErrorMessage != "upstream down" {
		t.Fatalf("error_message = %q", job.ErrorMessage)
	}

	var retried, failed int
	for _, subj := range ev.subjects() {
		switch {
		case strings.HasSuffix(subj, ".retried"):
			retried++
		case strings.HasSuffix(subj, ".failed"):
			failed++
		}
	}
	if retried != 2 || failed != 1 {
		t.Fatalf("events retried=%d failed=%d, want 2 and 1", retried, failed)
	}
}

func TestWorkerRetryWaitsForBackoff(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewRegistry()
	_ = r.Register(store.JobRescore, func(context.Context, *store.Job) error {
		return errors.New("flaky")
	})
	cfg := testConfig()
	cfg.RetryBackoff = time.Hour
	w := NewWorker(s, r, nil, cfg, testLogger())

	id := enqueue(t, s, store.JobRescore, 3)
	w.ProcessBatch(context.Background())
	w.ProcessBatch(context.Background()) // scheduled an hour out, must not run

	job, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1 while backoff pending", job.Attempts)
	}
	if job.Status != store.JobPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if !job.ScheduledAt.After(time.Now().Add(30 * time.Minute)) {
		t.Fatalf("scheduled_at = %s, want pushed out by backoff", job.ScheduledAt)
	}
}

func TestWorkerUnknownTypeFailsJobNotWorker(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewRegistry() // nothing registered
	w := NewWorker(s, r, nil, testConfig(), testLogger())

	id := enqueue(t, s, store.JobReportGeneration, 3)
	w.ProcessBatch(context.Background())

	job, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != store.JobFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "unknown job type") {
		t.Fatalf("error_message = %q", job.ErrorMessage)
	}
}

func TestWorkerSurvivesHandlerPanic(t *testing.T) {
	s := store.NewMemoryStore()
	r := NewRegistry()
	_ = r.Register(store.JobDataSync, func(context.Context, *store.Job) error {
		panic("boom")
	})
	w := NewWorker(s, r, nil, testConfig(), testLogger())

	id := enqueue(t, s, store.JobDataSync, 2)
	w.ProcessBatch(context.Background())

	job, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != store.JobPending {
		t.Fatalf("status = %s, want pending after panic requeue", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "handler panic") {
		t.Fatalf("error_message = %q", job.ErrorMessage)
	}
}

func TestWorkerHonorsPriorityOrdering(t *testing.T) {
	s := store.NewMemoryStore()
	var order []int
	var mu sync.Mutex
	r := NewRegistry()
	_ = r.Register(store.JobDataSync, func(_ context.Context, job *store.Job) error {
		mu.Lock()
		order = append(order, job.Priority)
		mu.Unlock()
		return nil
	})
	cfg := testConfig()
	cfg.BatchSize = 1 // one claim per batch so ordering is observable
	w := NewWorker(s, r, nil, cfg, testLogger())

	for _, prio := range []int{1, 9, 5} {
		job := &store.Job{
			Type:        store.JobDataSync,
			Payload:     map[string]interface{}{"assessment_id": uuid.New().String()},
			Priority:    prio,
			MaxAttempts: 1,
		}
		if err := s.EnqueueJob(context.Background(), job); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		w.ProcessBatch(context.Background())
	}
	if len(order) != 3 || order[0] != 9 || order[1] != 5 || order[2] != 1 {
		t.Fatalf("processing order = %v, want highest priority first", order)
	}
}

func TestWorkerStartStop(t *testing.T) {
	s := store.NewMemoryStore()
	done := make(chan struct{})
	r := NewRegistry()
	var once sync.Once
	_ = r.Register(store.JobDataSync, func(context.Context, *store.Job) error {
		once.Do(func() { close(done) })
		return nil
	})
	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.ReconcileInterval = 10 * time.Millisecond
	w := NewWorker(s, r, nil, cfg, testLogger())

	enqueue(t, s, store.JobDataSync, 1)
	w.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never processed the job")
	}
	w.Stop()
}

// stubScorer returns a canned result for any input.
type stubScorer struct {
	result *scoring.BlendedScoreResult
	err    error
}

func (s *stubScorer) Score(_ context.Context, in *assessment.Input) (*scoring.BlendedScoreResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.AssessmentID = in.ID
	return &out, nil
}

func TestRescoreHandlerPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ev := &captureClient{}

	in := &assessment.Input{SubmittedBy: "founder@example.com"}
	if err := s.CreateAssessment(ctx, in); err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}

	scorer := &stubScorer{result: &scoring.BlendedScoreResult{
		FinalScore:      620,
		CalibratedScore: 598,
		Confidence:      0.8,
		Versions:        scoring.VersionTags{RuleSet: "ruleset-v3"},
		CreatedAt:       time.Now().UTC(),
	}}
	h := NewHandlers(s, scorer, ev, testLogger())

	job := &store.Job{
		Type:    store.JobRescore,
		Payload: map[string]interface{}{"assessment_id": in.ID.String()},
	}
	if err := h.Rescore(ctx, job); err != nil {
		t.Fatalf("Rescore: %v", err)
	}

	saved, err := s.GetLatestScoreResult(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetLatestScoreResult: %v", err)
	}
	if saved.CalibratedScore != 598 {
		t.Fatalf("calibrated = %v, want 598", saved.CalibratedScore)
	}
	subjects := ev.subjects()
	if len(subjects) != 1 || !strings.HasSuffix(subjects[0], ".completed") {
		t.Fatalf("published subjects = %v", subjects)
	}
}

func TestRescoreHandlerRejectsBadPayload(t *testing.T) {
	h := NewHandlers(store.NewMemoryStore(), &stubScorer{}, nil, testLogger())

	for name, payload := range map[string]map[string]interface{}{
		"missing":    {},
		"not_string": {"assessment_id": 42},
		"not_uuid":   {"assessment_id": "nope"},
	} {
		job := &store.Job{Type: store.JobRescore, Payload: payload}
		if err := h.Rescore(context.Background(), job); err == nil {
			t.Errorf("%s payload: expected error", name)
		}
	}
}

func TestDataSyncHandlerPublishesCRMEvent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ev := &captureClient{}

	in := &assessment.Input{}
	if err := s.CreateAssessment(ctx, in); err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}
	if err := s.SaveScoreResult(ctx, &scoring.BlendedScoreResult{
		AssessmentID:    in.ID,
		CalibratedScore: 710,
		CreatedAt:       time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveScoreResult: %v", err)
	}

	h := NewHandlers(s, &stubScorer{}, ev, testLogger())
	job := &store.Job{
		Type:    store.JobDataSync,
		Payload: map[string]interface{}{"assessment_id": in.ID.String()},
	}
	if err := h.DataSync(ctx, job); err != nil {
		t.Fatalf("DataSync: %v", err)
	}

	subjects := ev.subjects()
	if len(subjects) != 1 || subjects[0] != "auricite.crm.sync" {
		t.Fatalf("published subjects = %v", subjects)
	}
}

func TestReportHandlerRendersReport(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ev := &captureClient{}

	in := &assessment.Input{}
	if err := s.CreateAssessment(ctx, in); err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}
	if err := s.SaveScoreResult(ctx, &scoring.BlendedScoreResult{
		AssessmentID:    in.ID,
		CalibratedScore: 640,
		Confidence:      0.75,
		Dimensions: []scoring.DimensionSubscore{
			{Name: "team", Score: 7.5, Max: 10},
		},
		Explanations: scoring.Explanations{
			Overview:   "A promising early-stage venture.",
			Strengths:  []string{"Committed full-time team."},
			Weaknesses: []string{"No revenue yet."},
		},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveScoreResult: %v", err)
	}

	h := NewHandlers(s, &stubScorer{}, ev, testLogger())
	job := &store.Job{
		Type:    store.JobReportGeneration,
		Payload: map[string]interface{}{"assessment_id": in.ID.String()},
	}
	if err := h.GenerateReport(ctx, job); err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}

	if len(ev.events) != 1 {
		t.Fatalf("events = %d, want 1", len(ev.events))
	}
	payload, ok := ev.events[0].Data.(events.ReportGeneratedEvent)
	if !ok {
		t.Fatalf("event payload type %T", ev.events[0].Data)
	}
	for _, want := range []string{"640", "team", "Committed full-time team.", "No revenue yet."} {
		if !strings.Contains(payload.Report, want) {
			t.Errorf("report missing %q:\n%s", want, payload.Report)
		}
	}
}

func TestRescoreRequestSubscriptionEnqueuesJob(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ev := &captureClient{}

	in := &assessment.Input{}
	if err := s.CreateAssessment(ctx, in); err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}

	h := NewHandlers(s, &stubScorer{}, ev, testLogger())
	if err := h.SubscribeRescoreRequests(3); err != nil {
		t.Fatalf("SubscribeRescoreRequests: %v", err)
	}

	msg, _ := json.Marshal(events.RescoreRequestEvent{
		AssessmentID: in.ID.String(),
		Priority:     7,
		Reason:       "ruleset update",
	})
	ev.deliver(events.SubjectRescoreRequest, msg)

	listed, err := s.ListJobs(ctx, store.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("jobs = %d, want 1", len(listed))
	}
	job := listed[0]
	if job.Type != store.JobRescore {
		t.Errorf("job type = %q, want %q", job.Type, store.JobRescore)
	}
	if job.Priority != 7 {
		t.Errorf("priority = %d, want 7", job.Priority)
	}
	if job.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", job.MaxAttempts)
	}
	if got := job.Payload["assessment_id"]; got != in.ID.String() {
		t.Errorf("payload assessment_id = %v, want %s", got, in.ID)
	}
}

func TestRescoreRequestSubscriptionDropsMalformed(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	ev := &captureClient{}

	h := NewHandlers(s, &stubScorer{}, ev, testLogger())
	if err := h.SubscribeRescoreRequests(3); err != nil {
		t.Fatalf("SubscribeRescoreRequests: %v", err)
	}

	ev.deliver(events.SubjectRescoreRequest, []byte("{not json"))
	ev.deliver(events.SubjectRescoreRequest, []byte(`{"assessment_id":"not-a-uuid"}`))

	listed, err := s.ListJobs(ctx, store.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("jobs = %d, want 0", len(listed))
	}
}

func TestSubscribeRescoreRequestsWithoutEvents(t *testing.T) {
	h := NewHandlers(store.NewMemoryStore(), &stubScorer{}, nil, testLogger())
	if err := h.SubscribeRescoreRequests(3); err == nil {
		t.Fatal("expected error without an event client")
	}
}
