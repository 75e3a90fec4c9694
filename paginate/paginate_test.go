package paginate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/SinesysTech/captura/tribunal"
)

// fixturePages builds a PageFunc serving static pages of the given sizes.
func fixturePages(sizes ...int) PageFunc {
	return func(ctx context.Context, page int) (*PageResult, error) {
		if page > len(sizes) {
			return nil, fmt.Errorf("page %d past fixture", page)
		}
		pr := &PageResult{HasMore: page < len(sizes)}
		for i := range sizes[page-1] {
			pr.Records = append(pr.Records, tribunal.Record{
				Number:  fmt.Sprintf("p%d-r%d", page, i),
				Payload: json.RawMessage(`{}`),
			})
		}
		pr.Raw = json.RawMessage(fmt.Sprintf(`{"page":%d}`, page))
		return pr, nil
	}
}

func fixedTotal(n int) TotalFunc {
	return func(ctx context.Context) (int, error) { return n, nil }
}

func TestFetchCountsMatch(t *testing.T) {
	// WHAT: accumulated == totalizer yields success with both counts equal.
	res, err := Fetch(context.Background(), Spec{
		Page:  fixturePages(50, 50, 20),
		Total: fixedTotal(120),
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.FetchedCount != 120 || res.ServerTotal != 120 {
		t.Errorf("counts: fetched %d total %d, want 120/120", res.FetchedCount, res.ServerTotal)
	}
	if len(res.RawPages) != 3 {
		t.Errorf("raw pages: got %d, want 3", len(res.RawPages))
	}
}

func TestFetchOverCount(t *testing.T) {
	// WHAT: pages summing above the totalizer raise ErrCountExceedsTotalizer.
	// WHY: duplicate pages must never be silently accepted.
	_, err := Fetch(context.Background(), Spec{
		Page:  fixturePages(60, 60),
		Total: fixedTotal(100),
	})
	if !errors.Is(err, tribunal.ErrCountExceedsTotalizer) {
		t.Fatalf("got %v, want ErrCountExceedsTotalizer", err)
	}
}

func TestFetchUnderCount(t *testing.T) {
	// WHAT: exhaustion below the totalizer raises ErrCountBelowTotalizer.
	_, err := Fetch(context.Background(), Spec{
		Page:  fixturePages(30),
		Total: fixedTotal(45),
	})
	if !errors.Is(err, tribunal.ErrCountBelowTotalizer) {
		t.Fatalf("got %v, want ErrCountBelowTotalizer", err)
	}
}

func TestFetchOrderingStable(t *testing.T) {
	// WHAT: record ordering equals arrival order and is identical across
	// repeated fetches of the same fixture.
	spec := Spec{Page: fixturePages(3, 2), Total: fixedTotal(5)}

	first, err := Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	want := []string{"p1-r0", "p1-r1", "p1-r2", "p2-r0", "p2-r1"}
	for i, rec := range first.Records {
		if rec.Number != want[i] {
			t.Fatalf("arrival order broken at %d: got %s, want %s", i, rec.Number, want[i])
		}
		if second.Records[i].Number != rec.Number {
			t.Fatalf("ordering not idempotent at %d", i)
		}
	}
}

func TestFetchPageErrorAborts(t *testing.T) {
	// WHAT: a failing page aborts the whole fetch without consulting the
	// totalizer; no intra-engine retry happens.
	totalCalls := 0
	pageCalls := 0
	_, err := Fetch(context.Background(), Spec{
		Page: func(ctx context.Context, page int) (*PageResult, error) {
			pageCalls++
			if page == 2 {
				return nil, fmt.Errorf("%w: connection reset", tribunal.ErrNetwork)
			}
			return &PageResult{Records: []tribunal.Record{{Number: "x"}}, HasMore: true}, nil
		},
		Total: func(ctx context.Context) (int, error) { totalCalls++; return 0, nil },
	})
	if !errors.Is(err, tribunal.ErrNetwork) {
		t.Fatalf("got %v, want wrapped ErrNetwork", err)
	}
	if pageCalls != 2 {
		t.Errorf("page calls: got %d, want 2 (no retry)", pageCalls)
	}
	if totalCalls != 0 {
		t.Errorf("totalizer consulted after abort")
	}
}

func TestFetchPageLimit(t *testing.T) {
	// WHAT: a court that always reports more pages trips the MaxPages guard.
	_, err := Fetch(context.Background(), Spec{
		Page: func(ctx context.Context, page int) (*PageResult, error) {
			return &PageResult{HasMore: true}, nil
		},
		Total:    fixedTotal(0),
		MaxPages: 10,
	})
	if err == nil {
		t.Fatal("endless pagination should fail")
	}
}
