package tribunal

import (
	"context"
	"fmt"
)

// Stub is a placeholder driver for court families that are configured but
// not yet implemented. Every capability fails with ErrDriverNotImplemented,
// which the orchestrator records as an isolated per-credential error.
type Stub struct {
	Kind string
}

// NewStub creates a stub driver for the given kind.
func NewStub(kind string) *Stub {
	return &Stub{Kind: kind}
}

func (s *Stub) Authenticate(ctx context.Context, cred *Credential, cfg *CourtConfig) (*Session, error) {
	return nil, fmt.Errorf("%w: %s", ErrDriverNotImplemented, s.Kind)
}

func (s *Stub) FetchRecords(ctx context.Context, sess *Session, req *CaptureRequest) (*CaptureResult, error) {
	return nil, fmt.Errorf("%w: %s", ErrDriverNotImplemented, s.Kind)
}

func (s *Stub) FetchHearings(ctx context.Context, sess *Session, period Period) ([]Hearing, error) {
	return nil, fmt.Errorf("%w: %s", ErrDriverNotImplemented, s.Kind)
}

func (s *Stub) Terminate(sess *Session) {}
