package store

// Run statuses.
const (
	RunInProgress = "in_progress"
	RunSuccess    = "success"
	RunError      = "error"
)

// Raw log and per-filter statuses.
const (
	AttemptSuccess = "success"
	AttemptError   = "error"
)

// Schedule periodicities.
const (
	PeriodicityDaily      = "daily"
	PeriodicityEveryNDays = "every-n-days"
)

// Run is one capture run: created at start, finalized exactly once.
type Run struct {
	ID            string             `json:"id"`
	OperatorID    string             `json:"operator_id"`
	CredentialIDs []string           `json:"credential_ids"`
	Status        string             `json:"status"`
	Results       []CredentialResult `json:"per_credential_results"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	StartedAt     int64              `json:"started_at"`
	FinishedAt    *int64             `json:"finished_at,omitempty"`
}

// CredentialResult is the run summary for one credential. Every run carries
// exactly one entry per requested credential.
type CredentialResult struct {
	CredentialID string         `json:"credential_id"`
	CourtID      string         `json:"court_id"`
	Status       string         `json:"status"`
	Filters      []FilterResult `json:"filters,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// FilterResult is the outcome of one filter fetch within a credential.
type FilterResult struct {
	Label        string `json:"label"`
	Status       string `json:"status"`
	FetchedCount int    `json:"fetched_count"`
	ServerTotal  int    `json:"server_total"`
	Error        string `json:"error,omitempty"`
}

// RawLogEntry is one append-only forensic row: exactly one per
// credential x filter attempt, written once, never updated.
type RawLogEntry struct {
	ID            string  `json:"id"`
	RunID         string  `json:"run_id"`
	CourtID       string  `json:"court_id"`
	CredentialID  string  `json:"credential_id"`
	FilterLabel   string  `json:"filter_label"`
	Status        string  `json:"status"`
	RequestParams string  `json:"request_params"`
	RawPayload    *string `json:"raw_payload,omitempty"`
	SummaryJSON   *string `json:"summary,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	CreatedAt     int64   `json:"created_at"`
}

// Schedule is a recurring capture definition.
type Schedule struct {
	ID            string   `json:"id"`
	OperatorID    string   `json:"operator_id"`
	CaptureKind   string   `json:"capture_kind"`
	CredentialIDs []string `json:"credential_ids"`
	Periodicity   string   `json:"periodicity"`
	IntervalDays  int      `json:"interval_days,omitempty"`
	TimeOfDay     string   `json:"time_of_day"` // "HH:MM", operator-local
	Active        bool     `json:"active"`
	LastRunAt     *int64   `json:"last_run_at,omitempty"`
	NextRunAt     int64    `json:"next_run_at"`
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
}

// CapturedRecord is one normalized record in the catalog, keyed by
// court + stable identifier. Re-captures overwrite in place.
type CapturedRecord struct {
	CourtID    string `json:"court_id"`
	Number     string `json:"number"`
	Kind       string `json:"kind"`
	Payload    string `json:"payload"`
	CapturedAt int64  `json:"captured_at"`
}
