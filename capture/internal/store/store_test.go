package store

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/SinesysTech/captura/dbopen"
	"github.com/SinesysTech/captura/tribunal"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewStore(db)
}

func TestRunLifecycle(t *testing.T) {
	// WHAT: A run is inserted in_progress and finalized exactly once with
	// its per-credential results.
	s := testStore(t)
	ctx := context.Background()

	run := &Run{ID: "run_1", OperatorID: "op-1", CredentialIDs: []string{"cred_a", "cred_b"}}
	if err := s.InsertRun(ctx, run); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	got, err := s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunInProgress || got.FinishedAt != nil {
		t.Errorf("fresh run: status %q finished %v", got.Status, got.FinishedAt)
	}
	if len(got.CredentialIDs) != 2 {
		t.Errorf("credential ids: %v", got.CredentialIDs)
	}

	results := []CredentialResult{
		{CredentialID: "cred_a", CourtID: "tjsp", Status: AttemptSuccess,
			Filters: []FilterResult{{Label: "docket-listing", Status: AttemptSuccess, FetchedCount: 12, ServerTotal: 12}}},
		{CredentialID: "cred_b", CourtID: "trt2", Status: AttemptError, Error: "config not found"},
	}
	if err := s.FinalizeRun(ctx, "run_1", RunError, results, "credential cred_b: config not found"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	got, err = s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunError || got.FinishedAt == nil {
		t.Errorf("finalized run: status %q finished %v", got.Status, got.FinishedAt)
	}
	if len(got.Results) != 2 || got.Results[0].Filters[0].FetchedCount != 12 {
		t.Errorf("results round-trip: %+v", got.Results)
	}

	missing, err := s.GetRun(ctx, "run_none")
	if err != nil || missing != nil {
		t.Errorf("missing run: %v %v", missing, err)
	}
}

func TestRawLogAppendAndReadBack(t *testing.T) {
	// WHAT: Raw log rows come back in write order with their nullable
	// payload and summary preserved.
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertRun(ctx, &Run{ID: "run_1", OperatorID: "op-1", CredentialIDs: []string{"cred_a"}}); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	payload := `{"resultado":[]}`
	summary := `{"fetched":0,"total":0}`
	entries := []*RawLogEntry{
		{ID: "log_1", RunID: "run_1", CourtID: "tjsp", CredentialID: "cred_a",
			FilterLabel: "docket-listing", Status: AttemptSuccess,
			RequestParams: `{"situacao":"ativo"}`, RawPayload: &payload, SummaryJSON: &summary},
		{ID: "log_2", RunID: "run_1", CourtID: "tjsp", CredentialID: "cred_a",
			FilterLabel: "hearings", Status: AttemptError, ErrorMessage: "network: http 502"},
	}
	for _, e := range entries {
		if err := s.AppendRawLog(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}

	got, err := s.RawLogsForRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d, want 2", len(got))
	}
	if got[0].ID != "log_1" || got[1].ID != "log_2" {
		t.Errorf("order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].RawPayload == nil || *got[0].RawPayload != payload {
		t.Errorf("payload: %v", got[0].RawPayload)
	}
	if got[1].RawPayload != nil || got[1].SummaryJSON != nil {
		t.Errorf("error row should carry null payload and summary")
	}
	if got[1].ErrorMessage == "" {
		t.Error("error row lost its message")
	}
}

func TestScheduleCRUDAndDue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sc := &Schedule{
		ID: "sched_1", OperatorID: "op-1", CaptureKind: "docket-listing",
		CredentialIDs: []string{"cred_a"}, Periodicity: PeriodicityEveryNDays,
		IntervalDays: 3, TimeOfDay: "06:00", Active: true, NextRunAt: 1000,
	}
	if err := s.InsertSchedule(ctx, sc); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Due only once now passes next_run_at.
	due, err := s.DueSchedules(ctx, 999)
	if err != nil || len(due) != 0 {
		t.Errorf("before due time: %d schedules, err %v", len(due), err)
	}
	due, err = s.DueSchedules(ctx, 1000)
	if err != nil || len(due) != 1 {
		t.Fatalf("at due time: %d schedules, err %v", len(due), err)
	}

	// Inactive schedules never surface as due.
	if err := s.SetScheduleActive(ctx, "sched_1", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	due, err = s.DueSchedules(ctx, 5000)
	if err != nil || len(due) != 0 {
		t.Errorf("inactive schedule reported due: %d", len(due))
	}

	got, err := s.GetSchedule(ctx, "sched_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active || got.NextRunAt != 1000 {
		t.Errorf("deactivation must freeze next_run_at: %+v", got)
	}

	if err := s.RecordScheduleRun(ctx, "sched_1", 2000, 3000); err != nil {
		t.Fatalf("record run: %v", err)
	}
	got, _ = s.GetSchedule(ctx, "sched_1")
	if got.LastRunAt == nil || *got.LastRunAt != 2000 || got.NextRunAt != 3000 {
		t.Errorf("run stamp: %+v", got)
	}

	if err := s.DeleteSchedule(ctx, "sched_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetSchedule(ctx, "sched_1"); got != nil {
		t.Error("schedule survived delete")
	}
}

func TestCredentialCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	creds := []*tribunal.Credential{
		{ID: "cred_b", OperatorID: "op-1", CourtID: "trt2", Document: "111", Secret: "s1"},
		{ID: "cred_a", OperatorID: "op-1", CourtID: "tjsp", Document: "222", Secret: "s2", OTPAccountID: "acc-1"},
		{ID: "cred_x", OperatorID: "op-2", CourtID: "tjsp", Document: "333", Secret: "s3"},
	}
	for _, c := range creds {
		if err := s.InsertCredential(ctx, c); err != nil {
			t.Fatalf("insert %s: %v", c.ID, err)
		}
	}

	// Listing is scoped to the operator and ordered by court code.
	list, err := s.ListCredentials(ctx, "op-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].CourtID != "tjsp" || list[1].CourtID != "trt2" {
		t.Errorf("listing: %+v", list)
	}

	got, err := s.GetCredential(ctx, "cred_a")
	if err != nil || got == nil || got.OTPAccountID != "acc-1" {
		t.Errorf("get: %+v, %v", got, err)
	}

	if err := s.DeleteCredential(ctx, "cred_a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetCredential(ctx, "cred_a"); got != nil {
		t.Error("credential survived delete")
	}
}

func TestUpsertRecordsOverwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := []tribunal.Record{
		{CourtID: "tjsp", Number: "0001", Kind: tribunal.KindDocketListing, Payload: []byte(`{"v":1}`)},
		{CourtID: "tjsp", Number: "0002", Kind: tribunal.KindDocketListing, Payload: []byte(`{"v":1}`)},
	}
	if err := s.UpsertRecords(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// A re-capture of 0001 overwrites, never duplicates.
	again := []tribunal.Record{
		{CourtID: "tjsp", Number: "0001", Kind: tribunal.KindDocketListing, Payload: []byte(`{"v":2}`)},
	}
	if err := s.UpsertRecords(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := s.CountRecords(ctx, "tjsp")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("catalog size: got %d, want 2", count)
	}
}
