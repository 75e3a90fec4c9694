package pje

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/SinesysTech/captura/tribunal"
)

// courtServer fakes the /processos endpoint: numbered records served in
// fixed pages, with a totalizer that can be skewed to provoke mismatches.
type courtServer struct {
	records   int
	pageSize  int
	totalSkew int // added to the reported totalizer count
	requests  []string
}

func (s *courtServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization header: %q", got)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.requests = append(s.requests, r.URL.RequestURI())

		q := r.URL.Query()
		if q.Get("totalizador") == "true" {
			json.NewEncoder(w).Encode(map[string]any{"totalRegistros": s.records + s.totalSkew})
			return
		}

		page, _ := strconv.Atoi(q.Get("pagina"))
		start := (page - 1) * s.pageSize
		end := start + s.pageSize
		if end > s.records {
			end = s.records
		}
		items := make([]map[string]any, 0, s.pageSize)
		for i := start; i < end; i++ {
			items = append(items, map[string]any{"numeroProcesso": fmt.Sprintf("proc-%03d", i)})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"resultado":      items,
			"totalRegistros": s.records,
		})
	}
}

func testSession(apiURL string) *tribunal.Session {
	return &tribunal.Session{
		Court: &tribunal.CourtConfig{
			CourtID:       "tjsp",
			DriverKind:    "pje",
			APIURL:        apiURL,
			PageTimeoutMs: 5000,
		},
		Artifact: "tok-1",
		Identity: tribunal.Identity{Subject: "adv-77"},
		Close:    func() {},
	}
}

func TestFetchRecordsPagesUntilExhaustion(t *testing.T) {
	// WHAT: 7 records at page size 3 means 3 page requests plus one
	// totalizer call, and the order of arrival is preserved.
	cs := &courtServer{records: 7, pageSize: 3}
	srv := httptest.NewServer(cs.handler(t))
	defer srv.Close()

	d := New(&fakeCodes{}, Config{Logger: testLogger()})
	res, err := d.FetchRecords(context.Background(), testSession(srv.URL), &tribunal.CaptureRequest{
		Kind:     tribunal.KindDocketListing,
		PageSize: 3,
	})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if res.FetchedCount != 7 || res.ServerTotal != 7 {
		t.Errorf("counts: fetched %d total %d", res.FetchedCount, res.ServerTotal)
	}
	if len(res.RawPages) != 3 {
		t.Errorf("raw pages: got %d, want 3", len(res.RawPages))
	}
	for i, rec := range res.Records {
		if want := fmt.Sprintf("proc-%03d", i); rec.Number != want {
			t.Fatalf("record %d: got %q, want %q (order not preserved)", i, rec.Number, want)
		}
	}
}

func TestFetchRecordsScopesQueryToSubject(t *testing.T) {
	cs := &courtServer{records: 1, pageSize: 10}
	srv := httptest.NewServer(cs.handler(t))
	defer srv.Close()

	d := New(&fakeCodes{}, Config{Logger: testLogger()})
	_, err := d.FetchRecords(context.Background(), testSession(srv.URL), &tribunal.CaptureRequest{
		Kind:    tribunal.KindDocketListing,
		Filters: map[string]string{"situacao": "ativo"},
	})
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	for _, uri := range cs.requests {
		if !strings.Contains(uri, "idPessoa=adv-77") || !strings.Contains(uri, "situacao=ativo") {
			t.Errorf("request %q missing subject scope or filter", uri)
		}
	}
}

func TestFetchRecordsTotalizerMismatch(t *testing.T) {
	// WHAT: A totalizer above the fetched count is a silent-truncation
	// signal; below is a drift signal. Both abort the filter.
	srvOver := httptest.NewServer((&courtServer{records: 5, pageSize: 5, totalSkew: 2}).handler(t))
	defer srvOver.Close()

	d := New(&fakeCodes{}, Config{Logger: testLogger()})
	_, err := d.FetchRecords(context.Background(), testSession(srvOver.URL), &tribunal.CaptureRequest{
		Kind: tribunal.KindDocketListing,
	})
	if !errors.Is(err, tribunal.ErrCountBelowTotalizer) {
		t.Errorf("over-reporting totalizer: got %v, want ErrCountBelowTotalizer", err)
	}

	srvUnder := httptest.NewServer((&courtServer{records: 5, pageSize: 5, totalSkew: -2}).handler(t))
	defer srvUnder.Close()

	_, err = d.FetchRecords(context.Background(), testSession(srvUnder.URL), &tribunal.CaptureRequest{
		Kind: tribunal.KindDocketListing,
	})
	if !errors.Is(err, tribunal.ErrCountExceedsTotalizer) {
		t.Errorf("under-reporting totalizer: got %v, want ErrCountExceedsTotalizer", err)
	}
}

func TestFetchRecordsServerErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := New(&fakeCodes{}, Config{Logger: testLogger()})
	_, err := d.FetchRecords(context.Background(), testSession(srv.URL), &tribunal.CaptureRequest{
		Kind: tribunal.KindDocketListing,
	})
	if !errors.Is(err, tribunal.ErrNetwork) {
		t.Errorf("got %v, want ErrNetwork", err)
	}

	srv.Close() // connection refused from here on
	_, err = d.FetchRecords(context.Background(), testSession(srv.URL), &tribunal.CaptureRequest{
		Kind: tribunal.KindDocketListing,
	})
	if !errors.Is(err, tribunal.ErrNetwork) {
		t.Errorf("transport failure: got %v, want ErrNetwork", err)
	}
}

func TestFetchRecordsUnknownKind(t *testing.T) {
	d := New(&fakeCodes{}, Config{Logger: testLogger()})
	_, err := d.FetchRecords(context.Background(), testSession("http://unused"), &tribunal.CaptureRequest{
		Kind: tribunal.CaptureKind("minutes"),
	})
	if err == nil {
		t.Fatal("unknown kind should fail before any request")
	}
}

func TestFetchHearingsConcatenatesCategories(t *testing.T) {
	// WHAT: Scheduled, held and cancelled are fetched as three passes over
	// /audiencias, each integrity-checked, concatenated in that order.
	var statuses []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("totalizador") == "true" {
			json.NewEncoder(w).Encode(map[string]any{"total": 1})
			return
		}
		statuses = append(statuses, q.Get("status"))
		json.NewEncoder(w).Encode(map[string]any{
			"resultado": []map[string]any{{
				"numeroProcesso": "h-" + q.Get("status"),
				"dataAudiencia":  "2026-09-01",
			}},
			"total": 1,
		})
	}))
	defer srv.Close()

	d := New(&fakeCodes{}, Config{Logger: testLogger()})
	period := tribunal.Period{
		From: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}
	hearings, err := d.FetchHearings(context.Background(), testSession(srv.URL), period)
	if err != nil {
		t.Fatalf("FetchHearings: %v", err)
	}
	if len(hearings) != 3 {
		t.Fatalf("hearings: got %d, want 3", len(hearings))
	}
	wantStatus := []string{"scheduled", "held", "cancelled"}
	for i, h := range hearings {
		if h.Status != wantStatus[i] {
			t.Errorf("hearing %d status: got %q, want %q", i, h.Status, wantStatus[i])
		}
		if h.Date != "2026-09-01" {
			t.Errorf("hearing %d date: %q", i, h.Date)
		}
	}
	if want := []string{"M", "R", "C"}; len(statuses) != 3 || statuses[0] != want[0] || statuses[1] != want[1] || statuses[2] != want[2] {
		t.Errorf("category order: %v", statuses)
	}
}
