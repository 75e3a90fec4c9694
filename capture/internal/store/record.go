package store

import (
	"context"
	"fmt"
	"time"

	"github.com/SinesysTech/captura/tribunal"
)

// UpsertRecords writes normalized records into the catalog, keyed by
// court + stable identifier. Re-captures overwrite in place.
func (s *Store) UpsertRecords(ctx context.Context, records []tribunal.Record) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO captured_records (court_id, number, kind, payload, captured_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(court_id, number) DO UPDATE SET
			kind=excluded.kind, payload=excluded.payload, captured_at=excluded.captured_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.CourtID, rec.Number, string(rec.Kind), string(rec.Payload), now); err != nil {
			return fmt.Errorf("upsert record %s/%s: %w", rec.CourtID, rec.Number, err)
		}
	}
	return tx.Commit()
}

// CountRecords returns the catalog size for one court.
func (s *Store) CountRecords(ctx context.Context, courtID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM captured_records WHERE court_id = ?`, courtID).Scan(&count)
	return count, err
}
