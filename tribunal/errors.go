package tribunal

import "errors"

// Capture error taxonomy. Everything except ErrCredentialOwnership is
// isolated at credential or filter granularity and recorded in the audit
// log; none of these cross the orchestrator boundary.
var (
	// ErrConfigNotFound means no configuration row exists for a court.
	ErrConfigNotFound = errors.New("tribunal: court configuration not found")

	// ErrDriverNotImplemented means the configured driver kind has no
	// working implementation.
	ErrDriverNotImplemented = errors.New("tribunal: driver not implemented")

	// ErrAuthTimeout means the whole-flow authentication ceiling expired.
	ErrAuthTimeout = errors.New("tribunal: authentication timed out")

	// ErrOTPExhausted means the one-time-passcode challenge failed three
	// consecutive times.
	ErrOTPExhausted = errors.New("tribunal: otp attempts exhausted")

	// ErrTokenNotIssued means the provider never set the session artifact.
	ErrTokenNotIssued = errors.New("tribunal: session token not issued")

	// ErrCountExceedsTotalizer means pagination accumulated more records
	// than the server-reported total (duplicate pages).
	ErrCountExceedsTotalizer = errors.New("tribunal: fetched count exceeds totalizer")

	// ErrCountBelowTotalizer means pagination exhausted with fewer records
	// than the server-reported total (possible incomplete scrape).
	ErrCountBelowTotalizer = errors.New("tribunal: fetched count below totalizer")

	// ErrNetwork wraps transport failures during a page fetch.
	ErrNetwork = errors.New("tribunal: network error")

	// ErrCredentialOwnership means a requested credential does not belong
	// to the run's operator. Aborts the whole run before it starts.
	ErrCredentialOwnership = errors.New("tribunal: credential does not belong to operator")
)
