// Package capture is the orchestration layer: it turns one operator request
// into a sequential sweep over court credentials, records a two-tier audit
// trail (run summary + append-only raw logs), and re-fires recurring
// schedules.
package capture

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SinesysTech/captura/capture/internal/store"
	"github.com/SinesysTech/captura/idgen"
	"github.com/SinesysTech/captura/tribunal"
)

// Service is the capture orchestrator.
type Service struct {
	cfg      Config
	store    *store.Store
	registry *tribunal.Registry
	drivers  *tribunal.Factory
	log      *slog.Logger

	newRunID   idgen.Generator
	newLogID   idgen.Generator
	newCredID  idgen.Generator
	newSchedID idgen.Generator

	// runs tracks detached background runs so Close can drain them.
	runs sync.WaitGroup

	// now is injectable so scheduler tests can steer the clock.
	now func() time.Time
}

// New creates the service and applies the capture schema.
func New(db *sql.DB, registry *tribunal.Registry, drivers *tribunal.Factory, cfg Config) (*Service, error) {
	cfg.defaults()
	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("capture: apply schema: %w", err)
	}
	return &Service{
		cfg:        cfg,
		store:      store.NewStore(db),
		registry:   registry,
		drivers:    drivers,
		log:        cfg.Logger,
		newRunID:   idgen.Prefixed("run_", idgen.UUIDv7()),
		newLogID:   idgen.Prefixed("log_", idgen.UUIDv7()),
		newCredID:  idgen.Prefixed("cred_", idgen.UUIDv7()),
		newSchedID: idgen.Prefixed("sched_", idgen.UUIDv7()),
		now:        time.Now,
	}, nil
}

// Run returns one run summary, or nil when unknown.
func (s *Service) Run(ctx context.Context, runID string) (*store.Run, error) {
	return s.store.GetRun(ctx, runID)
}

// RawLogs returns the forensic rows of one run in write order.
func (s *Service) RawLogs(ctx context.Context, runID string) ([]*store.RawLogEntry, error) {
	return s.store.RawLogsForRun(ctx, runID)
}

// AddCredential stores an operator credential, assigning its ID.
func (s *Service) AddCredential(ctx context.Context, c *tribunal.Credential) error {
	if c.OperatorID == "" || c.CourtID == "" || c.Document == "" || c.Secret == "" {
		return fmt.Errorf("capture: operator_id, court_id, document and secret are required")
	}
	if c.ID == "" {
		c.ID = s.newCredID()
	}
	return s.store.InsertCredential(ctx, c)
}

// Credentials lists one operator's credentials.
func (s *Service) Credentials(ctx context.Context, operatorID string) ([]*tribunal.Credential, error) {
	return s.store.ListCredentials(ctx, operatorID)
}

// DeleteCredential removes a credential.
func (s *Service) DeleteCredential(ctx context.Context, id string) error {
	return s.store.DeleteCredential(ctx, id)
}

// Close waits for in-flight background runs to finish.
func (s *Service) Close() {
	s.runs.Wait()
}
