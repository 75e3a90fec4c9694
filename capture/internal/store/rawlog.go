package store

import (
	"context"
	"fmt"
	"time"
)

// AppendRawLog writes one forensic row. The table is append-only; there is
// deliberately no update or delete counterpart.
func (s *Store) AppendRawLog(ctx context.Context, e *RawLogEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	if e.RequestParams == "" {
		e.RequestParams = "{}"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO capture_raw_logs (id, run_id, court_id, credential_id, filter_label,
		status, request_params, raw_payload, summary_json, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.CourtID, e.CredentialID, e.FilterLabel,
		e.Status, e.RequestParams, e.RawPayload, e.SummaryJSON, e.ErrorMessage, e.CreatedAt,
	)
	return err
}

// RawLogsForRun returns the run's rows in write order.
func (s *Store) RawLogsForRun(ctx context.Context, runID string) ([]*RawLogEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, court_id, credential_id, filter_label,
		status, request_params, raw_payload, summary_json, error_message, created_at
		FROM capture_raw_logs WHERE run_id = ? ORDER BY created_at ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*RawLogEntry
	for rows.Next() {
		var e RawLogEntry
		err := rows.Scan(&e.ID, &e.RunID, &e.CourtID, &e.CredentialID, &e.FilterLabel,
			&e.Status, &e.RequestParams, &e.RawPayload, &e.SummaryJSON, &e.ErrorMessage, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan raw log: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
