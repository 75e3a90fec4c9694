package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SinesysTech/captura/tribunal"
)

// InsertCredential adds an operator credential.
func (s *Store) InsertCredential(ctx context.Context, c *tribunal.Credential) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO credentials (id, operator_id, court_id, document, secret, otp_account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OperatorID, c.CourtID, c.Document, c.Secret, c.OTPAccountID, c.CreatedAt,
	)
	return err
}

// GetCredential retrieves one credential by ID, or nil when absent.
func (s *Store) GetCredential(ctx context.Context, id string) (*tribunal.Credential, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, operator_id, court_id, document, secret, otp_account_id, created_at
		FROM credentials WHERE id = ?`, id)

	var c tribunal.Credential
	err := row.Scan(&c.ID, &c.OperatorID, &c.CourtID, &c.Document, &c.Secret, &c.OTPAccountID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &c, nil
}

// ListCredentials returns all credentials of one operator.
func (s *Store) ListCredentials(ctx context.Context, operatorID string) ([]*tribunal.Credential, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, operator_id, court_id, document, secret, otp_account_id, created_at
		FROM credentials WHERE operator_id = ? ORDER BY court_id ASC, created_at ASC`, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*tribunal.Credential
	for rows.Next() {
		var c tribunal.Credential
		if err := rows.Scan(&c.ID, &c.OperatorID, &c.CourtID, &c.Document, &c.Secret, &c.OTPAccountID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, &c)
	}
	return creds, rows.Err()
}

// DeleteCredential removes a credential.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	return err
}
