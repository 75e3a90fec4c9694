package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// InsertRun creates the run row in its in_progress state.
func (s *Store) InsertRun(ctx context.Context, r *Run) error {
	if r.StartedAt == 0 {
		r.StartedAt = time.Now().UnixMilli()
	}
	if r.Status == "" {
		r.Status = RunInProgress
	}
	ids, err := json.Marshal(r.CredentialIDs)
	if err != nil {
		return fmt.Errorf("marshal credential ids: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO capture_runs (id, operator_id, credential_ids, status, results_json, error_message, started_at)
		VALUES (?, ?, ?, ?, '[]', '', ?)`,
		r.ID, r.OperatorID, string(ids), r.Status, r.StartedAt,
	)
	return err
}

// FinalizeRun writes the run's terminal state. This is the run's single
// post-creation mutation.
func (s *Store) FinalizeRun(ctx context.Context, runID, status string, results []CredentialResult, errMsg string) error {
	res, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE capture_runs SET status=?, results_json=?, error_message=?, finished_at=?
		WHERE id=?`,
		status, string(res), errMsg, time.Now().UnixMilli(), runID,
	)
	return err
}

// GetRun retrieves one run by ID, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, operator_id, credential_ids, status, results_json, error_message, started_at, finished_at
		FROM capture_runs WHERE id = ?`, id)

	var r Run
	var ids, results string
	err := row.Scan(&r.ID, &r.OperatorID, &ids, &r.Status, &results, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &r.CredentialIDs); err != nil {
		return nil, fmt.Errorf("decode credential ids: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &r.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &r, nil
}
