// Package tribunal defines the contract between the capture orchestrator and
// the per-court drivers: connection configuration, credentials, sessions,
// capture requests and the normalized result shape. No court-specific
// response type ever crosses this boundary.
package tribunal

import (
	"encoding/json"
	"time"
)

// Credential is one operator login for one court instance. Owned by the
// operator; the capture core only ever reads it.
type Credential struct {
	ID         string `json:"id"`
	OperatorID string `json:"operator_id"`
	CourtID    string `json:"court_id"`
	// Document is the identifying document submitted to the identity
	// provider (CPF/CNPJ for the brazilian families).
	Document string `json:"document"`
	Secret   string `json:"-"`
	// OTPAccountID identifies this credential at the external one-time
	// passcode provider. Empty when the court never challenges.
	OTPAccountID string `json:"otp_account_id"`
	CreatedAt    int64  `json:"created_at"`
}

// CourtConfig is an immutable connection snapshot for one court, resolved
// once per credential per run.
type CourtConfig struct {
	CourtID    string `json:"court_id" yaml:"court_id"`
	DriverKind string `json:"driver_kind" yaml:"driver_kind"`
	BaseURL    string `json:"base_url" yaml:"base_url"`
	LoginURL   string `json:"login_url" yaml:"login_url"`
	APIURL     string `json:"api_url" yaml:"api_url"`

	// Per-stage timeouts in milliseconds; zero means the driver default.
	NavTimeoutMs  int64 `json:"nav_timeout_ms" yaml:"nav_timeout_ms"`
	AuthTimeoutMs int64 `json:"auth_timeout_ms" yaml:"auth_timeout_ms"`
	PageTimeoutMs int64 `json:"page_timeout_ms" yaml:"page_timeout_ms"`
}

// NavTimeout returns the per-hop navigation timeout.
func (c *CourtConfig) NavTimeout() time.Duration {
	if c.NavTimeoutMs > 0 {
		return time.Duration(c.NavTimeoutMs) * time.Millisecond
	}
	return 30 * time.Second
}

// AuthTimeout returns the whole-flow authentication ceiling.
func (c *CourtConfig) AuthTimeout() time.Duration {
	if c.AuthTimeoutMs > 0 {
		return time.Duration(c.AuthTimeoutMs) * time.Millisecond
	}
	return 4 * time.Minute
}

// PageTimeout returns the per-page fetch timeout.
func (c *CourtConfig) PageTimeout() time.Duration {
	if c.PageTimeoutMs > 0 {
		return time.Duration(c.PageTimeoutMs) * time.Millisecond
	}
	return 60 * time.Second
}

// Identity is the subject decoded from the session artifact.
type Identity struct {
	Subject  string `json:"subject"`
	Name     string `json:"name,omitempty"`
	Document string `json:"document,omitempty"`
}

// Session is one authenticated court session. It is owned by exactly one
// in-flight credential: created by Driver.Authenticate, destroyed by
// Driver.Terminate, never reused across credentials.
type Session struct {
	Court    *CourtConfig
	Artifact string // bearer token or serialized cookie issued by the IdP
	Identity Identity

	// Close tears down whatever the driver opened for this session
	// (browser process, cookie jar). Terminate calls it exactly once.
	Close func()
}

// CaptureKind selects which record family a request captures.
type CaptureKind string

const (
	KindDocketListing  CaptureKind = "docket-listing"
	KindHearings       CaptureKind = "hearings"
	KindPendingFilings CaptureKind = "pending-filings"
)

// CaptureRequest is one fetch sub-request (a "filter"), constructed per call.
type CaptureRequest struct {
	Kind     CaptureKind       `json:"kind"`
	Filters  map[string]string `json:"filters,omitempty"`
	PageSize int               `json:"page_size,omitempty"`
}

// Label is the human-auditable name of the request used in raw logs.
func (r *CaptureRequest) Label() string {
	if s, ok := r.Filters["status"]; ok {
		return string(r.Kind) + ":" + s
	}
	return string(r.Kind)
}

// Record is one normalized captured record. The driver's parsing boundary
// guarantees a stable identifier; the payload keeps the court's raw shape
// for downstream mapping.
type Record struct {
	CourtID string          `json:"court_id"`
	Number  string          `json:"number"` // stable court-side identifier
	Kind    CaptureKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// CaptureResult is the outcome of one exhaustive paginated fetch.
// Invariant: FetchedCount == ServerTotal on normal termination; the engine
// raises a counted-mismatch error otherwise, never truncates or pads.
type CaptureResult struct {
	Records      []Record          `json:"records"`
	ServerTotal  int               `json:"server_total"`
	FetchedCount int               `json:"fetched_count"`
	RawPages     []json.RawMessage `json:"raw_pages,omitempty"`
}

// Period is a closed date range for hearing capture.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Hearing is one normalized hearing entry.
type Hearing struct {
	CourtID string          `json:"court_id"`
	Number  string          `json:"number"`
	Status  string          `json:"status"` // scheduled | held | cancelled
	Date    string          `json:"date,omitempty"`
	Payload json.RawMessage `json:"payload"`
}
