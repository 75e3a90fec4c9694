package pje

import (
	"encoding/json"
	"fmt"

	"github.com/SinesysTech/captura/tribunal"
)

// The courts ship several API generations with diverging field names for
// the same logical fields. Each logical field has an ordered candidate
// list, evaluated first-match-wins; no shape-specific type ever leaves
// this file.
var (
	itemKeys    = []string{"resultado", "registros", "itens", "content", "dados"}
	totalKeys   = []string{"totalRegistros", "total", "quantidadeTotal", "totalElements"}
	hasMoreKeys = []string{"temProximaPagina", "hasNext", "possuiProximaPagina"}
	numberKeys  = []string{"numeroProcesso", "numero", "numeroUnico", "processo", "id"}
	dateKeys    = []string{"dataInicio", "dataAudiencia", "data", "dataHora"}
)

func firstString(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return fmt.Sprintf("%.0f", v), true
		}
	}
	return "", false
}

func firstInt(obj map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(float64); ok {
			return int(v), true
		}
	}
	return 0, false
}

func firstBool(obj map[string]any, keys []string) (bool, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(bool); ok {
			return v, true
		}
	}
	return false, false
}

func firstSlice(obj map[string]any, keys []string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := obj[k].([]any); ok {
			return v, true
		}
	}
	return nil, false
}

// parsePage decodes one raw page into normalized records plus the paging
// signals. hasMore falls back to a count computation when the response
// carries no explicit flag.
func parsePage(courtID string, kind tribunal.CaptureKind, raw []byte, page, pageSize int) ([]tribunal.Record, bool, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false, fmt.Errorf("pje: decode page: %w", err)
	}

	items, ok := firstSlice(obj, itemKeys)
	if !ok {
		return nil, false, fmt.Errorf("pje: page carries no item array")
	}

	records := make([]tribunal.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec, err := normalizeRecord(courtID, kind, m)
		if err != nil {
			return nil, false, fmt.Errorf("pje: page item %d: %w", i, err)
		}
		records = append(records, rec)
	}

	if more, ok := firstBool(obj, hasMoreKeys); ok {
		return records, more, nil
	}
	if total, ok := firstInt(obj, totalKeys); ok {
		return records, page*pageSize < total, nil
	}
	// No signal at all: a full page suggests another one may exist.
	return records, len(items) == pageSize && pageSize > 0, nil
}

// normalizeRecord maps one duck-typed court item into the fixed Record
// shape. The stable identifier is mandatory; the rest of the item is kept
// verbatim as the payload.
func normalizeRecord(courtID string, kind tribunal.CaptureKind, obj map[string]any) (tribunal.Record, error) {
	number, ok := firstString(obj, numberKeys)
	if !ok {
		return tribunal.Record{}, fmt.Errorf("no stable identifier in item")
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return tribunal.Record{}, fmt.Errorf("marshal payload: %w", err)
	}
	return tribunal.Record{
		CourtID: courtID,
		Number:  number,
		Kind:    kind,
		Payload: payload,
	}, nil
}

// parseTotal extracts the totalizer count from an aggregate response.
func parseTotal(raw []byte) (int, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("pje: decode totalizer: %w", err)
	}
	if n, ok := firstInt(obj, totalKeys); ok {
		return n, nil
	}
	return 0, fmt.Errorf("pje: totalizer response carries no count")
}

// hearingFromRecord reshapes a normalized record into a Hearing entry.
func hearingFromRecord(rec tribunal.Record, status string) tribunal.Hearing {
	h := tribunal.Hearing{
		CourtID: rec.CourtID,
		Number:  rec.Number,
		Status:  status,
		Payload: rec.Payload,
	}
	var obj map[string]any
	if err := json.Unmarshal(rec.Payload, &obj); err == nil {
		if d, ok := firstString(obj, dateKeys); ok {
			h.Date = d
		}
	}
	return h
}
