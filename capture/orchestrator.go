package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SinesysTech/captura/capture/internal/store"
	"github.com/SinesysTech/captura/tribunal"
)

// StartRun validates ownership, creates the run row and returns its ID
// immediately. The sweep itself runs detached; its only observable effect is
// the mutation of the run and raw-log rows.
func (s *Service) StartRun(ctx context.Context, operatorID string, credentialIDs []string, filters []tribunal.CaptureRequest) (string, error) {
	if operatorID == "" || len(credentialIDs) == 0 {
		return "", fmt.Errorf("capture: operator_id and credential_ids are required")
	}
	if len(filters) == 0 {
		filters = []tribunal.CaptureRequest{{Kind: tribunal.KindDocketListing}}
	}

	// Ownership is validated for the whole list before anything is written:
	// one foreign credential rejects the entire run.
	creds := make([]*tribunal.Credential, 0, len(credentialIDs))
	for _, id := range credentialIDs {
		cred, err := s.store.GetCredential(ctx, id)
		if err != nil {
			return "", fmt.Errorf("capture: load credential %s: %w", id, err)
		}
		if cred == nil {
			return "", fmt.Errorf("%w: credential %s not found", tribunal.ErrCredentialOwnership, id)
		}
		if cred.OperatorID != operatorID {
			return "", fmt.Errorf("%w: credential %s belongs to another operator", tribunal.ErrCredentialOwnership, id)
		}
		creds = append(creds, cred)
	}

	// Courts are swept in ascending court-code order, strictly one at a time.
	sort.Slice(creds, func(i, j int) bool {
		if creds[i].CourtID != creds[j].CourtID {
			return creds[i].CourtID < creds[j].CourtID
		}
		return creds[i].ID < creds[j].ID
	})

	run := &store.Run{
		ID:         s.newRunID(),
		OperatorID: operatorID,
		CredentialIDs: func() []string {
			ids := make([]string, len(creds))
			for i, c := range creds {
				ids[i] = c.ID
			}
			return ids
		}(),
	}
	if err := s.store.InsertRun(ctx, run); err != nil {
		return "", fmt.Errorf("capture: create run: %w", err)
	}

	// The sweep carries no deadline: an operator with many credentials can
	// legitimately run for hours, and the run must always reach finalization.
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.executeRun(context.Background(), run.ID, creds, filters)
	}()

	s.log.Info("capture: run started",
		"run", run.ID, "operator", operatorID, "credentials", len(creds), "filters", len(filters))
	return run.ID, nil
}

// executeRun sweeps the credentials sequentially and finalizes the run.
// Every credential yields exactly one result entry, failed or not.
func (s *Service) executeRun(ctx context.Context, runID string, creds []*tribunal.Credential, filters []tribunal.CaptureRequest) {
	results := make([]store.CredentialResult, 0, len(creds))
	var failures []string

	for _, cred := range creds {
		res := s.captureCredential(ctx, runID, cred, filters)
		results = append(results, res)
		if res.Error != "" {
			failures = append(failures, fmt.Sprintf("credential %s (%s): %s", cred.ID, cred.CourtID, res.Error))
		}
		for _, f := range res.Filters {
			if f.Error != "" {
				failures = append(failures, fmt.Sprintf("credential %s (%s) %s: %s", cred.ID, cred.CourtID, f.Label, f.Error))
			}
		}
	}

	status := store.RunSuccess
	if len(failures) > 0 {
		status = store.RunError
	}
	// Finalize on a fresh context: the run row must record its outcome even
	// if the sweep context was cancelled partway through.
	if err := s.store.FinalizeRun(context.Background(), runID, status, results, strings.Join(failures, "; ")); err != nil {
		s.log.Error("capture: finalize run failed", "run", runID, "error", err)
		return
	}
	s.log.Info("capture: run finished", "run", runID, "status", status, "failures", len(failures))
}

// captureCredential processes one credential end to end: resolve the court,
// authenticate, sweep the filters. A failure at any step is recorded and
// isolated; the sweep moves on to the next credential.
func (s *Service) captureCredential(ctx context.Context, runID string, cred *tribunal.Credential, filters []tribunal.CaptureRequest) store.CredentialResult {
	result := store.CredentialResult{CredentialID: cred.ID, CourtID: cred.CourtID}

	fail := func(stage string, err error) store.CredentialResult {
		result.Status = store.AttemptError
		result.Error = fmt.Sprintf("%s: %v", stage, err)
		s.appendRawLog(ctx, &store.RawLogEntry{
			RunID:        runID,
			CourtID:      cred.CourtID,
			CredentialID: cred.ID,
			FilterLabel:  stage,
			Status:       store.AttemptError,
			ErrorMessage: err.Error(),
		})
		return result
	}

	cfg, err := s.registry.Resolve(ctx, cred.CourtID)
	if err != nil {
		return fail("resolve-config", err)
	}
	driver, err := s.drivers.Driver(cfg.DriverKind)
	if err != nil {
		return fail("new-driver", err)
	}

	sess, err := driver.Authenticate(ctx, cred, cfg)
	if err != nil {
		return fail("authenticate", err)
	}
	// Exactly one Terminate per successful Authenticate, on every exit path.
	defer driver.Terminate(sess)

	for _, filter := range filters {
		result.Filters = append(result.Filters, s.captureFilter(ctx, runID, driver, sess, cred, filter))
	}

	result.Status = store.AttemptSuccess
	for _, f := range result.Filters {
		if f.Status == store.AttemptError {
			result.Status = store.AttemptError
			break
		}
	}
	return result
}

// captureFilter runs one fetch and writes its raw-log row. A failed filter
// never stops the remaining filters of the credential.
func (s *Service) captureFilter(ctx context.Context, runID string, driver tribunal.Driver, sess *tribunal.Session, cred *tribunal.Credential, filter tribunal.CaptureRequest) store.FilterResult {
	label := filter.Label()
	params, _ := json.Marshal(filter)
	entry := &store.RawLogEntry{
		RunID:         runID,
		CourtID:       cred.CourtID,
		CredentialID:  cred.ID,
		FilterLabel:   label,
		RequestParams: string(params),
	}

	var (
		fetched, total int
		rawPayload     []byte
		err            error
	)
	if filter.Kind == tribunal.KindHearings {
		fetched, rawPayload, err = s.fetchHearings(ctx, driver, sess)
		total = fetched
	} else {
		fetched, total, rawPayload, err = s.fetchRecords(ctx, driver, sess, &filter)
	}

	if err != nil {
		entry.Status = store.AttemptError
		entry.ErrorMessage = err.Error()
		s.appendRawLog(ctx, entry)
		s.log.Warn("capture: filter failed",
			"run", runID, "court", cred.CourtID, "filter", label, "error", err)
		return store.FilterResult{Label: label, Status: store.AttemptError, Error: err.Error()}
	}

	payload := string(rawPayload)
	summary := fmt.Sprintf(`{"fetched":%d,"server_total":%d}`, fetched, total)
	entry.Status = store.AttemptSuccess
	entry.RawPayload = &payload
	entry.SummaryJSON = &summary
	s.appendRawLog(ctx, entry)

	return store.FilterResult{Label: label, Status: store.AttemptSuccess, FetchedCount: fetched, ServerTotal: total}
}

func (s *Service) fetchRecords(ctx context.Context, driver tribunal.Driver, sess *tribunal.Session, filter *tribunal.CaptureRequest) (fetched, total int, raw []byte, err error) {
	res, err := driver.FetchRecords(ctx, sess, filter)
	if err != nil {
		return 0, 0, nil, err
	}
	if err := s.store.UpsertRecords(ctx, res.Records); err != nil {
		return 0, 0, nil, fmt.Errorf("catalog upsert: %w", err)
	}
	raw, _ = json.Marshal(res.RawPages)
	return res.FetchedCount, res.ServerTotal, raw, nil
}

func (s *Service) fetchHearings(ctx context.Context, driver tribunal.Driver, sess *tribunal.Session) (int, []byte, error) {
	now := time.Now()
	period := tribunal.Period{From: now, To: now.AddDate(0, 0, s.cfg.HearingWindowDays)}
	hearings, err := driver.FetchHearings(ctx, sess, period)
	if err != nil {
		return 0, nil, err
	}
	raw, _ := json.Marshal(hearings)
	return len(hearings), raw, nil
}

// appendRawLog assigns the row ID and writes it. The audit row is
// best-effort relative to the run itself: a write failure is logged, never
// propagated into the capture outcome.
func (s *Service) appendRawLog(ctx context.Context, e *store.RawLogEntry) {
	e.ID = s.newLogID()
	if err := s.store.AppendRawLog(ctx, e); err != nil {
		s.log.Error("capture: raw log write failed", "run", e.RunID, "filter", e.FilterLabel, "error", err)
	}
}
