package pje

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SinesysTech/captura/paginate"
	"github.com/SinesysTech/captura/tribunal"
)

const maxBodyBytes = 20 * 1024 * 1024

// endpointPath maps a capture kind to the court's internal API path.
func endpointPath(kind tribunal.CaptureKind) (string, error) {
	switch kind {
	case tribunal.KindDocketListing:
		return "/processos", nil
	case tribunal.KindPendingFilings:
		return "/expedientes", nil
	case tribunal.KindHearings:
		return "/audiencias", nil
	default:
		return "", fmt.Errorf("pje: unknown capture kind %q", kind)
	}
}

// apiGET calls one internal endpoint with the session's bearer artifact.
// Transport failures and non-2xx statuses are both ErrNetwork: from the
// engine's point of view the page simply never arrived.
func (d *Driver) apiGET(ctx context.Context, sess *tribunal.Session, path string, q url.Values) ([]byte, error) {
	u := strings.TrimRight(sess.Court.APIURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("pje: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.Artifact)
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tribunal.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d on %s", tribunal.ErrNetwork, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", tribunal.ErrNetwork, err)
	}
	return body, nil
}

// FetchRecords exhaustively pages one endpoint through the integrity engine.
func (d *Driver) FetchRecords(ctx context.Context, sess *tribunal.Session, req *tribunal.CaptureRequest) (*tribunal.CaptureResult, error) {
	path, err := endpointPath(req.Kind)
	if err != nil {
		return nil, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = d.cfg.PageSize
	}

	base := url.Values{}
	for k, v := range req.Filters {
		base.Set(k, v)
	}
	// Queries are scoped to the subject resolved at login.
	base.Set("idPessoa", sess.Identity.Subject)

	pageFn := func(ctx context.Context, page int) (*paginate.PageResult, error) {
		q := cloneValues(base)
		q.Set("pagina", strconv.Itoa(page))
		q.Set("tamanhoPagina", strconv.Itoa(pageSize))

		pageCtx, cancel := context.WithTimeout(ctx, sess.Court.PageTimeout())
		defer cancel()

		body, err := d.apiGET(pageCtx, sess, path, q)
		if err != nil {
			return nil, err
		}
		records, hasMore, err := parsePage(sess.Court.CourtID, req.Kind, body, page, pageSize)
		if err != nil {
			return nil, err
		}
		return &paginate.PageResult{Records: records, Raw: body, HasMore: hasMore}, nil
	}

	totalFn := func(ctx context.Context) (int, error) {
		q := cloneValues(base)
		q.Set("totalizador", "true")

		totalCtx, cancel := context.WithTimeout(ctx, sess.Court.PageTimeout())
		defer cancel()

		body, err := d.apiGET(totalCtx, sess, path, q)
		if err != nil {
			return 0, err
		}
		return parseTotal(body)
	}

	return paginate.Fetch(ctx, paginate.Spec{
		Page:   pageFn,
		Total:  totalFn,
		Logger: d.log,
	})
}

// hearingCategories are the three sub-categories fetched for a period, in
// the order they are concatenated. The codes are the court's own status
// letters (marcada, realizada, cancelada).
var hearingCategories = []struct {
	code  string
	label string
}{
	{"M", "scheduled"},
	{"R", "held"},
	{"C", "cancelled"},
}

// FetchHearings fetches the three hearing sub-categories for a date range
// and concatenates them, each through the same integrity-checked engine.
func (d *Driver) FetchHearings(ctx context.Context, sess *tribunal.Session, period tribunal.Period) ([]tribunal.Hearing, error) {
	var out []tribunal.Hearing
	for _, cat := range hearingCategories {
		req := &tribunal.CaptureRequest{
			Kind: tribunal.KindHearings,
			Filters: map[string]string{
				"status":     cat.code,
				"dataInicio": period.From.Format("2006-01-02"),
				"dataFim":    period.To.Format("2006-01-02"),
			},
		}
		res, err := d.FetchRecords(ctx, sess, req)
		if err != nil {
			return nil, fmt.Errorf("pje: hearings %s: %w", cat.label, err)
		}
		for _, rec := range res.Records {
			out = append(out, hearingFromRecord(rec, cat.label))
		}
	}
	return out, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
