package store

import "database/sql"

// Schema is the capture-side schema. The court catalog table lives with the
// tribunal registry and is applied separately at boot.
const Schema = `
-- Operator credentials for court backends
CREATE TABLE IF NOT EXISTS credentials (
    id              TEXT PRIMARY KEY,
    operator_id     TEXT NOT NULL,
    court_id        TEXT NOT NULL,
    document        TEXT NOT NULL,
    secret          TEXT NOT NULL,
    otp_account_id  TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credentials_operator ON credentials(operator_id, court_id);

-- Capture runs: inserted at start, updated exactly once at finalization
CREATE TABLE IF NOT EXISTS capture_runs (
    id              TEXT PRIMARY KEY,
    operator_id     TEXT NOT NULL,
    credential_ids  TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'in_progress',
    results_json    TEXT NOT NULL DEFAULT '[]',
    error_message   TEXT NOT NULL DEFAULT '',
    started_at      INTEGER NOT NULL,
    finished_at     INTEGER
);
CREATE INDEX IF NOT EXISTS idx_capture_runs_operator ON capture_runs(operator_id, started_at DESC);

-- Raw capture logs: append-only, one row per credential x filter attempt
CREATE TABLE IF NOT EXISTS capture_raw_logs (
    id              TEXT PRIMARY KEY,
    run_id          TEXT NOT NULL REFERENCES capture_runs(id) ON DELETE CASCADE,
    court_id        TEXT NOT NULL,
    credential_id   TEXT NOT NULL,
    filter_label    TEXT NOT NULL,
    status          TEXT NOT NULL,
    request_params  TEXT NOT NULL DEFAULT '{}',
    raw_payload     TEXT,
    summary_json    TEXT,
    error_message   TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_capture_raw_logs_run ON capture_raw_logs(run_id, created_at);

-- Recurring capture schedules
CREATE TABLE IF NOT EXISTS scheduled_captures (
    id              TEXT PRIMARY KEY,
    operator_id     TEXT NOT NULL,
    capture_kind    TEXT NOT NULL,
    credential_ids  TEXT NOT NULL,
    periodicity     TEXT NOT NULL,
    interval_days   INTEGER NOT NULL DEFAULT 0,
    time_of_day     TEXT NOT NULL,
    active          INTEGER NOT NULL DEFAULT 1,
    last_run_at     INTEGER,
    next_run_at     INTEGER NOT NULL,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scheduled_captures_due ON scheduled_captures(active, next_run_at);

-- Captured record catalog, keyed by court + the record's stable identifier
CREATE TABLE IF NOT EXISTS captured_records (
    court_id        TEXT NOT NULL,
    number          TEXT NOT NULL,
    kind            TEXT NOT NULL,
    payload         TEXT NOT NULL,
    captured_at     INTEGER NOT NULL,
    PRIMARY KEY (court_id, number)
);
CREATE INDEX IF NOT EXISTS idx_captured_records_kind ON captured_records(kind, captured_at DESC);
`

// ApplySchema creates all capture tables and indexes.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
