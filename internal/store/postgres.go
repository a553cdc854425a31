package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateAssessment(ctx context.Context, in *assessment.Input) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO assessments (submitted_by, payload)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		in.SubmittedBy, payload,
	).Scan(&in.ID, &in.CreatedAt)
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.Input, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM assessments WHERE id = $1`, id,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	in := &assessment.Input{}
	if err := json.Unmarshal(payload, in); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	in.ID = id
	return in, nil
}

func (s *PostgresStore) SaveScoreResult(ctx context.Context, r *scoring.BlendedScoreResult) error {
	dims, _ := json.Marshal(r.Dimensions)
	methods, _ := json.Marshal(r.Methods)
	weights, _ := json.Marshal(r.Weights)
	explanations, _ := json.Marshal(r.Explanations)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO score_results (assessment_id, final_score, calibrated_score, confidence,
			dimensions, methods, weights, explanations,
			ruleset_version, extraction_version, engine_version, processing_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.AssessmentID, r.FinalScore, r.CalibratedScore, r.Confidence,
		dims, methods, weights, explanations,
		r.Versions.RuleSet, r.Versions.Extraction, r.Versions.Engine, r.ProcessingMs, r.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetLatestScoreResult(ctx context.Context, assessmentID uuid.UUID) (*scoring.BlendedScoreResult, error) {
	r := &scoring.BlendedScoreResult{AssessmentID: assessmentID}
	var dims, methods, weights, explanations []byte
	err := s.pool.QueryRow(ctx, `
		SELECT final_score, calibrated_score, confidence,
			dimensions, methods, weights, explanations,
			ruleset_version, extraction_version, engine_version, processing_ms, created_at
		FROM score_results
		WHERE assessment_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, assessmentID,
	).Scan(
		&r.FinalScore, &r.CalibratedScore, &r.Confidence,
		&dims, &methods, &weights, &explanations,
		&r.Versions.RuleSet, &r.Versions.Extraction, &r.Versions.Engine, &r.ProcessingMs, &r.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(dims, &r.Dimensions)
	_ = json.Unmarshal(methods, &r.Methods)
	_ = json.Unmarshal(weights, &r.Weights)
	_ = json.Unmarshal(explanations, &r.Explanations)
	return r, nil
}
