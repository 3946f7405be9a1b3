package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// QueryEventRepository stores one row per answered request.
type QueryEventRepository struct {
	db *sql.DB
}

func NewQueryEventRepository(db *sql.DB) *QueryEventRepository {
	return &QueryEventRepository{db: db}
}

func (r *QueryEventRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS query_events (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT NOT NULL,
	query TEXT NOT NULL,
	state TEXT NOT NULL,
	agent TEXT NOT NULL,
	matched_topics JSONB NOT NULL DEFAULT '[]'::jsonb,
	candidate_count INTEGER NOT NULL DEFAULT 0,
	fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
	rerank_degraded BOOLEAN NOT NULL DEFAULT FALSE,
	citation_count INTEGER NOT NULL DEFAULT 0,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_events_created_at ON query_events (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_query_events_state ON query_events (state);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *QueryEventRepository) RecordQuery(ctx context.Context, event domain.QueryEvent) error {
	topics := event.MatchedTopics
	if topics == nil {
		topics = []string{}
	}
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("marshal matched topics: %w", err)
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_events (
	request_id, query, state, agent, matched_topics, candidate_count,
	fallback_used, rerank_degraded, citation_count, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, event.RequestID, event.Query, string(event.State), string(event.Agent), topicsJSON, event.CandidateCount,
		event.FallbackUsed, event.RerankDegraded, event.CitationCount, event.DurationMS, createdAt)
	if err != nil {
		return fmt.Errorf("insert query event: %w", err)
	}
	return nil
}

// StateCount is the number of events recorded for one terminal state.
type StateCount struct {
	State domain.QueryState
	Count int
}

// CountByState summarizes events created at or after since.
func (r *QueryEventRepository) CountByState(ctx context.Context, since time.Time) ([]StateCount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT state, COUNT(*)
FROM query_events
WHERE created_at >= $1
GROUP BY state
ORDER BY state
`, since)
	if err != nil {
		return nil, fmt.Errorf("count query events: %w", err)
	}
	defer rows.Close()

	out := make([]StateCount, 0, 4)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan query event count: %w", err)
		}
		out = append(out, StateCount{State: domain.QueryState(state), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query event counts: %w", err)
	}
	return out, nil
}
