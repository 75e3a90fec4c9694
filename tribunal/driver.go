package tribunal

import (
	"context"
	"fmt"
)

// Driver is the capability set one court family implements. The registry
// and orchestrator stay oblivious to how many families exist or how each
// one talks to its court.
type Driver interface {
	// Authenticate runs the court's login ritual and returns an exclusive
	// session. On success the caller owns the session and must hand it to
	// Terminate exactly once.
	Authenticate(ctx context.Context, cred *Credential, cfg *CourtConfig) (*Session, error)

	// FetchRecords exhaustively pages one endpoint and cross-checks the
	// accumulated count against the court's totalizer.
	FetchRecords(ctx context.Context, sess *Session, req *CaptureRequest) (*CaptureResult, error)

	// FetchHearings fetches the scheduled, held and cancelled hearing
	// sub-categories for a period and concatenates them in arrival order.
	FetchHearings(ctx context.Context, sess *Session, period Period) ([]Hearing, error)

	// Terminate discards the session and its browser process. Safe on every
	// exit path, never called twice for the same session.
	Terminate(sess *Session)
}

// Factory maps a driver kind to its implementation. Registration happens at
// startup; lookups after that are read-only.
type Factory struct {
	drivers map[string]Driver
}

// NewFactory creates an empty driver factory.
func NewFactory() *Factory {
	return &Factory{drivers: make(map[string]Driver)}
}

// Register binds a driver kind to an implementation. Later registrations
// for the same kind win, which lets tests swap in fakes.
func (f *Factory) Register(kind string, d Driver) {
	f.drivers[kind] = d
}

// Driver resolves a driver kind. Unknown kinds fail with
// ErrDriverNotImplemented so a misconfigured court fails fast.
func (f *Factory) Driver(kind string) (Driver, error) {
	d, ok := f.drivers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", ErrDriverNotImplemented, kind)
	}
	return d, nil
}

// Kinds returns the registered driver kinds.
func (f *Factory) Kinds() []string {
	out := make([]string, 0, len(f.drivers))
	for k := range f.drivers {
		out = append(out, k)
	}
	return out
}
