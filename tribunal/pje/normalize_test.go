package pje

import (
	"testing"

	"github.com/SinesysTech/captura/tribunal"
)

func TestParsePageCandidateKeys(t *testing.T) {
	// WHAT: Different API generations name the item array and number field
	// differently; the candidate lists absorb the variation.
	cases := []struct {
		name    string
		raw     string
		numbers []string
		more    bool
	}{
		{
			name:    "legacy resultado with explicit flag",
			raw:     `{"resultado":[{"numeroProcesso":"0001"},{"numeroProcesso":"0002"}],"temProximaPagina":true}`,
			numbers: []string{"0001", "0002"},
			more:    true,
		},
		{
			name:    "spring content with totalElements",
			raw:     `{"content":[{"numero":"0003"}],"totalElements":1}`,
			numbers: []string{"0003"},
			more:    false, // 1*2 >= 1
		},
		{
			name:    "numeric id fallback",
			raw:     `{"itens":[{"id":42,"assunto":"x"}],"total":1}`,
			numbers: []string{"42"},
			more:    false,
		},
		{
			name:    "no paging signal, short page",
			raw:     `{"dados":[{"processo":"0009"}]}`,
			numbers: []string{"0009"},
			more:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs, more, err := parsePage("tjsp", tribunal.KindDocketListing, []byte(tc.raw), 1, 2)
			if err != nil {
				t.Fatalf("parsePage: %v", err)
			}
			if len(recs) != len(tc.numbers) {
				t.Fatalf("records: got %d, want %d", len(recs), len(tc.numbers))
			}
			for i, want := range tc.numbers {
				if recs[i].Number != want {
					t.Errorf("record %d number: got %q, want %q", i, recs[i].Number, want)
				}
				if recs[i].CourtID != "tjsp" || recs[i].Kind != tribunal.KindDocketListing {
					t.Errorf("record %d provenance: %+v", i, recs[i])
				}
			}
			if more != tc.more {
				t.Errorf("hasMore: got %v, want %v", more, tc.more)
			}
		})
	}
}

func TestParsePageFullPageHeuristic(t *testing.T) {
	// WHAT: With no flag and no total, a full page means another may exist.
	raw := `{"registros":[{"numero":"1"},{"numero":"2"}]}`
	_, more, err := parsePage("trt2", tribunal.KindPendingFilings, []byte(raw), 1, 2)
	if err != nil {
		t.Fatalf("parsePage: %v", err)
	}
	if !more {
		t.Error("a full page without signals should report hasMore")
	}
}

func TestParsePageRejectsUnusableShapes(t *testing.T) {
	if _, _, err := parsePage("tjsp", tribunal.KindDocketListing, []byte(`not json`), 1, 10); err == nil {
		t.Error("invalid JSON should fail")
	}
	if _, _, err := parsePage("tjsp", tribunal.KindDocketListing, []byte(`{"total":3}`), 1, 10); err == nil {
		t.Error("response without an item array should fail")
	}
	// An item without any stable identifier poisons the page.
	raw := `{"resultado":[{"assunto":"sem numero"}],"total":1}`
	if _, _, err := parsePage("tjsp", tribunal.KindDocketListing, []byte(raw), 1, 10); err == nil {
		t.Error("item without a stable identifier should fail")
	}
}

func TestParseTotal(t *testing.T) {
	for raw, want := range map[string]int{
		`{"totalRegistros":128}`: 128,
		`{"total":0}`:            0,
		`{"quantidadeTotal":7}`:  7,
		`{"totalElements":33}`:   33,
	} {
		got, err := parseTotal([]byte(raw))
		if err != nil {
			t.Errorf("parseTotal(%s): %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("parseTotal(%s): got %d, want %d", raw, got, want)
		}
	}
	if _, err := parseTotal([]byte(`{"registros":[]}`)); err == nil {
		t.Error("totalizer response without a count should fail")
	}
}

func TestHearingFromRecordExtractsDate(t *testing.T) {
	rec := tribunal.Record{
		CourtID: "trt2",
		Number:  "0100-55",
		Kind:    tribunal.KindHearings,
		Payload: []byte(`{"numero":"0100-55","dataAudiencia":"2026-09-10T14:00:00"}`),
	}
	h := hearingFromRecord(rec, "scheduled")
	if h.Status != "scheduled" || h.Number != "0100-55" {
		t.Errorf("hearing: %+v", h)
	}
	if h.Date != "2026-09-10T14:00:00" {
		t.Errorf("date: got %q", h.Date)
	}
}

func TestIsOTPRejection(t *testing.T) {
	// WHAT: Rejection phrases match case-insensitively, inside HTML, and
	// never inside script bodies.
	cases := []struct {
		resp string
		want bool
	}{
		{`<div class="alert">Código inválido</div>`, true},
		{`CÓDIGO INVÁLIDO. Tente novamente.`, true},
		{`<span>Código expirado</span>`, true},
		{`<html><body>Bem-vindo ao painel</body></html>`, false},
		{`<script>var msg = "código inválido";</script><p>Carregando...</p>`, false},
		{``, false},
	}
	for _, tc := range cases {
		if got := isOTPRejection(tc.resp); got != tc.want {
			t.Errorf("isOTPRejection(%q): got %v, want %v", tc.resp, got, tc.want)
		}
	}
}
