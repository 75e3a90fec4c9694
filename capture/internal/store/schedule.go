package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// InsertSchedule adds a recurring capture definition.
func (s *Store) InsertSchedule(ctx context.Context, sc *Schedule) error {
	now := time.Now().UnixMilli()
	if sc.CreatedAt == 0 {
		sc.CreatedAt = now
	}
	if sc.UpdatedAt == 0 {
		sc.UpdatedAt = now
	}
	ids, err := json.Marshal(sc.CredentialIDs)
	if err != nil {
		return fmt.Errorf("marshal credential ids: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO scheduled_captures (id, operator_id, capture_kind, credential_ids,
		periodicity, interval_days, time_of_day, active, last_run_at, next_run_at,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.OperatorID, sc.CaptureKind, string(ids),
		sc.Periodicity, sc.IntervalDays, sc.TimeOfDay, sc.Active, sc.LastRunAt, sc.NextRunAt,
		sc.CreatedAt, sc.UpdatedAt,
	)
	return err
}

// UpdateSchedule rewrites a schedule's definition fields.
func (s *Store) UpdateSchedule(ctx context.Context, sc *Schedule) error {
	sc.UpdatedAt = time.Now().UnixMilli()
	ids, err := json.Marshal(sc.CredentialIDs)
	if err != nil {
		return fmt.Errorf("marshal credential ids: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE scheduled_captures SET capture_kind=?, credential_ids=?, periodicity=?,
		interval_days=?, time_of_day=?, next_run_at=?, updated_at=?
		WHERE id=?`,
		sc.CaptureKind, string(ids), sc.Periodicity,
		sc.IntervalDays, sc.TimeOfDay, sc.NextRunAt, sc.UpdatedAt, sc.ID,
	)
	return err
}

// GetSchedule retrieves one schedule by ID, or nil when absent.
func (s *Store) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, operator_id, capture_kind, credential_ids, periodicity, interval_days,
		time_of_day, active, last_run_at, next_run_at, created_at, updated_at
		FROM scheduled_captures WHERE id = ?`, id)
	return scanSchedule(row)
}

// ListSchedules returns every schedule, newest first.
func (s *Store) ListSchedules(ctx context.Context) ([]*Schedule, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, operator_id, capture_kind, credential_ids, periodicity, interval_days,
		time_of_day, active, last_run_at, next_run_at, created_at, updated_at
		FROM scheduled_captures ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		sc, err := scanScheduleRows(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// DueSchedules returns active schedules whose next_run_at has passed.
func (s *Store) DueSchedules(ctx context.Context, now int64) ([]*Schedule, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, operator_id, capture_kind, credential_ids, periodicity, interval_days,
		time_of_day, active, last_run_at, next_run_at, created_at, updated_at
		FROM scheduled_captures
		WHERE active = 1 AND next_run_at <= ?
		ORDER BY next_run_at ASC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		sc, err := scanScheduleRows(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// SetScheduleActive toggles firing. Deactivation freezes next_run_at as-is.
func (s *Store) SetScheduleActive(ctx context.Context, id string, active bool) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE scheduled_captures SET active=?, updated_at=? WHERE id=?`,
		active, time.Now().UnixMilli(), id)
	return err
}

// RecordScheduleRun stamps a firing: lastRunAt plus the recomputed nextRunAt.
func (s *Store) RecordScheduleRun(ctx context.Context, id string, lastRunAt, nextRunAt int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE scheduled_captures SET last_run_at=?, next_run_at=?, updated_at=? WHERE id=?`,
		lastRunAt, nextRunAt, time.Now().UnixMilli(), id)
	return err
}

// DeleteSchedule removes a schedule.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM scheduled_captures WHERE id = ?`, id)
	return err
}

func scanSchedule(row *sql.Row) (*Schedule, error) {
	var sc Schedule
	var ids string
	var active int
	err := row.Scan(&sc.ID, &sc.OperatorID, &sc.CaptureKind, &ids, &sc.Periodicity, &sc.IntervalDays,
		&sc.TimeOfDay, &active, &sc.LastRunAt, &sc.NextRunAt, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	sc.Active = active != 0
	if err := json.Unmarshal([]byte(ids), &sc.CredentialIDs); err != nil {
		return nil, fmt.Errorf("decode credential ids: %w", err)
	}
	return &sc, nil
}

func scanScheduleRows(rows *sql.Rows) (*Schedule, error) {
	var sc Schedule
	var ids string
	var active int
	err := rows.Scan(&sc.ID, &sc.OperatorID, &sc.CaptureKind, &ids, &sc.Periodicity, &sc.IntervalDays,
		&sc.TimeOfDay, &active, &sc.LastRunAt, &sc.NextRunAt, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	sc.Active = active != 0
	if err := json.Unmarshal([]byte(ids), &sc.CredentialIDs); err != nil {
		return nil, fmt.Errorf("decode credential ids: %w", err)
	}
	return &sc, nil
}
