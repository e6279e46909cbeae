// Package archive persists metrics records to Postgres so they outlive the
// in-process log.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/docchat/internal/models"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveInteraction is idempotent on the interaction ID.
func (r *Repository) SaveInteraction(ctx context.Context, in models.Interaction) error {
	id, err := uuid.Parse(in.ID)
	if err != nil {
		return fmt.Errorf("parse interaction ID: %w", err)
	}
	if in.Citations == nil {
		in.Citations = []string{}
	}
	citations, err := json.Marshal(in.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	var filter *string
	if in.FilterUsed != "" {
		filter = &in.FilterUsed
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO interactions (id, created_at, session_id, question, answer, citations, latency_ms,
		                           tokens_input, tokens_output, tokens_total, confidence, model, was_refused, filter_used, cost_usd)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO NOTHING`,
		id, in.Timestamp, in.SessionID, in.Question, in.Answer, citations, in.LatencyMs,
		in.TokensInput, in.TokensOutput, in.TokensTotal, in.Confidence, in.Model, in.WasRefused, filter, in.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// SaveError is idempotent on the event ID.
func (r *Repository) SaveError(ctx context.Context, ev models.ErrorEvent) error {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		return fmt.Errorf("parse error event ID: %w", err)
	}
	if ev.Context == nil {
		ev.Context = map[string]string{}
	}
	eventCtx, err := json.Marshal(ev.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO error_events (id, created_at, kind, message, context)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		id, ev.Timestamp, ev.Kind, ev.Message, eventCtx,
	)
	if err != nil {
		return fmt.Errorf("insert error event: %w", err)
	}
	return nil
}
