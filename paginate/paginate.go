// Package paginate implements the exhaustive fetch loop shared by every
// driver endpoint: issue pages until the court reports no more, accumulate
// records in arrival order, then cross-check the accumulated count against
// the court's separately-reported totalizer.
package paginate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SinesysTech/captura/tribunal"
)

// PageResult is one page as the driver normalized it.
type PageResult struct {
	Records []tribunal.Record
	Raw     json.RawMessage
	HasMore bool
}

// PageFunc fetches one page (1-based). A transport failure aborts the whole
// fetch; the engine never retries a partial page, the caller decides whether
// to retry the entire fetch.
type PageFunc func(ctx context.Context, page int) (*PageResult, error)

// TotalFunc fetches the court's aggregate count for the same filter.
type TotalFunc func(ctx context.Context) (int, error)

// Spec describes one exhaustive fetch.
type Spec struct {
	Page  PageFunc
	Total TotalFunc

	// MaxPages guards against a court that never reports exhaustion.
	// Default: 500.
	MaxPages int

	Logger *slog.Logger
}

func (s *Spec) defaults() {
	if s.MaxPages <= 0 {
		s.MaxPages = 500
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
}

// Fetch runs the loop and the integrity check. Records keep arrival order;
// the result is only returned when the accumulated count equals the
// totalizer; a mismatch is raised, never silently truncated or padded.
func Fetch(ctx context.Context, spec Spec) (*tribunal.CaptureResult, error) {
	spec.defaults()

	result := &tribunal.CaptureResult{}

	for page := 1; ; page++ {
		if page > spec.MaxPages {
			return nil, fmt.Errorf("paginate: page limit %d reached without exhaustion", spec.MaxPages)
		}

		pr, err := spec.Page(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("paginate: page %d: %w", page, err)
		}

		result.Records = append(result.Records, pr.Records...)
		if len(pr.Raw) > 0 {
			result.RawPages = append(result.RawPages, pr.Raw)
		}

		spec.Logger.Debug("paginate: page fetched",
			"page", page, "records", len(pr.Records), "accumulated", len(result.Records))

		if !pr.HasMore {
			break
		}
	}

	total, err := spec.Total(ctx)
	if err != nil {
		return nil, fmt.Errorf("paginate: totalizer: %w", err)
	}

	result.FetchedCount = len(result.Records)
	result.ServerTotal = total

	switch {
	case result.FetchedCount > total:
		// Duplicate pages are a stronger integrity problem than an
		// under-count: the same record would be ingested twice.
		return nil, fmt.Errorf("%w: fetched %d, totalizer %d",
			tribunal.ErrCountExceedsTotalizer, result.FetchedCount, total)
	case result.FetchedCount < total:
		return nil, fmt.Errorf("%w: fetched %d, totalizer %d",
			tribunal.ErrCountBelowTotalizer, result.FetchedCount, total)
	}

	return result, nil
}
