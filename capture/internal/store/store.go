// Package store is the data access layer for the capture service: runs,
// raw capture logs, schedules, credentials and the captured-record catalog.
//
// The store receives an already-opened *sql.DB (see dbopen); it never opens
// or owns the connection.
package store

import "database/sql"

// Store wraps the capture database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
