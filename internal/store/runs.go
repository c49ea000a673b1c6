package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/compass-ml/compkb/internal/model"
)

// IngestRun records one orchestrator operation for audit and status queries.
type IngestRun struct {
	ID            string                    `json:"id"`
	CompetitionID string                    `json:"competition_id"`
	Operation     string                    `json:"operation"`
	Status        string                    `json:"status"`
	Counters      map[string]model.Counters `json:"counters,omitempty"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    *time.Time                `json:"finished_at,omitempty"`
}

// StartIngestRun opens a run record and returns its ID.
func (s *Store) StartIngestRun(ctx context.Context, competitionID, operation string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, competition_id, operation, status, started_at)
		 VALUES (?, ?, ?, 'running', ?)`,
		id, competitionID, operation, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "store: start ingest run %s", operation)
	}
	return id, nil
}

// FinishIngestRun closes a run record with its final status and counters.
func (s *Store) FinishIngestRun(ctx context.Context, id, status string, counters map[string]model.Counters) error {
	var countersJSON sql.NullString
	if len(counters) > 0 {
		raw, err := json.Marshal(counters)
		if err != nil {
			return eris.Wrap(err, "store: marshal counters")
		}
		countersJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, counters = ?, finished_at = ? WHERE id = ?`,
		status, countersJSON, time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "store: finish ingest run %s", id)
}

// ListIngestRuns returns the most recent runs for a competition, newest
// first.
func (s *Store) ListIngestRuns(ctx context.Context, competitionID string, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, competition_id, operation, status, counters, started_at, finished_at
		 FROM ingest_runs WHERE competition_id = ?
		 ORDER BY started_at DESC LIMIT ?`,
		competitionID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list ingest runs")
	}
	defer rows.Close()

	out := []IngestRun{}
	for rows.Next() {
		var r IngestRun
		var countersJSON sql.NullString
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.CompetitionID, &r.Operation, &r.Status, &countersJSON, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "store: scan ingest run")
		}
		if countersJSON.Valid {
			// Unreadable counters are dropped, not fatal.
			_ = json.Unmarshal([]byte(countersJSON.String), &r.Counters)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "store: list ingest runs iterate")
}
