package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comprai/comprai/internal/model"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestFreshHitSkipsStore(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		calls.Add(1)
		return []model.ListSummary{{ID: 1, Name: "Mercado"}}, nil
	}
	c := NewOverviewCache(time.Minute, fetch, slog.Default())

	for i := 0; i < 3; i++ {
		got, err := c.Get(context.Background(), 7)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Mercado" {
			t.Fatalf("unexpected summaries: %+v", got)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestFirstFetchFailureStaysEmpty(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		calls.Add(1)
		return nil, errors.New("store down")
	}
	c := NewOverviewCache(time.Minute, fetch, slog.Default())

	if _, err := c.Get(context.Background(), 7); err == nil {
		t.Fatal("expected error on first fetch failure")
	}

	// No prior data was cached, so the next read fetches again.
	c.Get(context.Background(), 7)
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestStaleReadServesOldDataAndRefreshes(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		n := calls.Add(1)
		if n == 1 {
			return []model.ListSummary{{ID: 1, Name: "antiga"}}, nil
		}
		return []model.ListSummary{{ID: 1, Name: "nova"}}, nil
	}
	c := NewOverviewCache(10*time.Millisecond, fetch, slog.Default())

	c.Get(context.Background(), 7)
	time.Sleep(20 * time.Millisecond)

	// Stale read: returns the previous rows, kicks off a background refresh.
	got, err := c.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Name != "antiga" {
		t.Errorf("stale read should serve cached rows, got %q", got[0].Name)
	}

	waitFor(t, func() bool { return calls.Load() >= 2 })
	waitFor(t, func() bool {
		cur, _ := c.Get(context.Background(), 7)
		return len(cur) == 1 && cur[0].Name == "nova"
	})
}

func TestBackgroundFailureRetainsData(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		if calls.Add(1) == 1 {
			return []model.ListSummary{{ID: 1, Name: "Mercado"}}, nil
		}
		return nil, errors.New("store down")
	}
	c := NewOverviewCache(10*time.Millisecond, fetch, slog.Default())

	c.Get(context.Background(), 7)
	time.Sleep(20 * time.Millisecond)

	c.Get(context.Background(), 7)
	waitFor(t, func() bool { return calls.Load() >= 2 })

	got, err := c.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Mercado" {
		t.Errorf("failed refresh should retain previous rows, got %+v", got)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	rows := []model.ListSummary{{ID: 1, Name: "Mercado"}}
	fetch := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		calls.Add(1)
		return rows, nil
	}
	c := NewOverviewCache(time.Minute, fetch, slog.Default())

	c.Get(context.Background(), 7)
	c.Get(context.Background(), 7)
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch calls = %d, want 1", n)
	}

	// Simulate a mutation: the store now holds an extra list.
	rows = []model.ListSummary{{ID: 1, Name: "Mercado"}, {ID: 2, Name: "Farmácia"}}
	c.Invalidate(7)

	// The read after an invalidation must reflect the mutation immediately,
	// not serve the pre-mutation snapshot while refreshing in the background.
	got, err := c.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read after invalidate returned %d rows, want 2", len(got))
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestInvalidateDiscardsStaleRefresh(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	fetch := func(ctx context.Context, userID int64) ([]model.ListSummary, error) {
		switch calls.Add(1) {
		case 1:
			return []model.ListSummary{{ID: 1, Name: "antiga"}}, nil
		case 2:
			// The background refresh that started before the mutation.
			<-release
			return []model.ListSummary{{ID: 1, Name: "antiga"}}, nil
		default:
			return []model.ListSummary{{ID: 1, Name: "nova"}}, nil
		}
	}
	c := NewOverviewCache(10*time.Millisecond, fetch, slog.Default())

	c.Get(context.Background(), 7)
	time.Sleep(20 * time.Millisecond)

	// Stale read kicks off the refresh, which blocks on release.
	c.Get(context.Background(), 7)
	waitFor(t, func() bool { return calls.Load() >= 2 })

	c.Invalidate(7)
	got, err := c.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Name != "nova" {
		t.Fatalf("read after invalidate = %q, want %q", got[0].Name, "nova")
	}

	// The refresh finishes carrying pre-mutation rows; it must not clobber
	// the post-mutation snapshot.
	close(release)
	time.Sleep(50 * time.Millisecond)
	got, err = c.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Name != "nova" {
		t.Errorf("stale refresh overwrote snapshot, got %q", got[0].Name)
	}
}
