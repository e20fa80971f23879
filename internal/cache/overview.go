// Package cache holds the in-memory list-overview cache. It exists to avoid
// redundant reads across navigation, not to be a source of truth: entries are
// disposable and rebuilt from the store whenever they go stale.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/comprai/comprai/internal/model"
)

const (
	// DefaultWindow is how long a fetched overview is considered fresh.
	DefaultWindow = 30 * time.Second

	// activityWindow bounds background refreshes to entries someone actually
	// looked at recently.
	activityWindow = 5 * time.Minute
)

// FetchFunc loads a user's list summaries from the store.
type FetchFunc func(ctx context.Context, userID int64) ([]model.ListSummary, error)

type entry struct {
	summaries  []model.ListSummary
	fetchedAt  time.Time
	accessedAt time.Time
	hasData    bool
	refreshing bool

	// gen increments on invalidation. A fetch started under an older gen
	// carries pre-mutation rows and must not be stored.
	gen uint64
}

// OverviewCache caches per-user list summaries with a freshness window.
// A read within the window is served from memory. A stale read with prior
// data returns the cached rows and refreshes in the background, keeping the
// old rows if the refresh fails. A read with no prior data fetches
// synchronously and stays empty on failure.
type OverviewCache struct {
	mu      sync.Mutex
	entries map[int64]*entry
	window  time.Duration
	fetch   FetchFunc
	logger  *slog.Logger
}

func NewOverviewCache(window time.Duration, fetch FetchFunc, logger *slog.Logger) *OverviewCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &OverviewCache{
		entries: make(map[int64]*entry),
		window:  window,
		fetch:   fetch,
		logger:  logger,
	}
}

// Get returns the user's list summaries, consulting the store only when the
// cached copy is missing or stale.
func (c *OverviewCache) Get(ctx context.Context, userID int64) ([]model.ListSummary, error) {
	now := time.Now()

	c.mu.Lock()
	e, ok := c.entries[userID]
	if !ok {
		e = &entry{}
		c.entries[userID] = e
	}
	e.accessedAt = now

	if e.hasData && now.Sub(e.fetchedAt) < c.window {
		summaries := e.summaries
		c.mu.Unlock()
		return summaries, nil
	}

	if e.hasData {
		// Stale but present: serve the old rows, refresh off the request path.
		summaries := e.summaries
		if !e.refreshing {
			e.refreshing = true
			go c.refresh(userID, e.gen)
		}
		c.mu.Unlock()
		return summaries, nil
	}
	gen := e.gen
	c.mu.Unlock()

	// No usable data, either a first read or one following an invalidation.
	// Fetch before responding so the caller sees the current rows.
	summaries, err := c.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if e.gen == gen {
		e.summaries = summaries
		e.fetchedAt = time.Now()
		e.hasData = true
	}
	c.mu.Unlock()

	return summaries, nil
}

// refresh refetches one user's summaries. On failure the previous rows stay.
// A refresh outpaced by an invalidation is discarded.
func (c *OverviewCache) refresh(userID int64, gen uint64) {
	summaries, err := c.fetch(context.Background(), userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok {
		return
	}
	e.refreshing = false
	if err != nil {
		c.logger.Warn("overview refresh failed", "user_id", userID, "error", err)
		return
	}
	if e.gen != gen {
		return
	}
	e.summaries = summaries
	e.fetchedAt = time.Now()
	e.hasData = true
}

// Invalidate drops a user's cached rows so the next read fetches from the
// store before responding. Called after any mutation that changes the
// overview; a later read must see the mutation, not a stale snapshot.
func (c *OverviewCache) Invalidate(userID int64) {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok {
		e.summaries = nil
		e.fetchedAt = time.Time{}
		e.hasData = false
		e.gen++
	}
	c.mu.Unlock()
}

// Run refreshes stale entries for recently active users until ctx is done.
func (c *OverviewCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refreshStale()
		case <-ctx.Done():
			return
		}
	}
}

func (c *OverviewCache) refreshStale() {
	now := time.Now()

	type target struct {
		userID int64
		gen    uint64
	}

	c.mu.Lock()
	var due []target
	for userID, e := range c.entries {
		if !e.hasData || e.refreshing {
			continue
		}
		if now.Sub(e.accessedAt) > activityWindow {
			continue
		}
		if now.Sub(e.fetchedAt) >= c.window {
			e.refreshing = true
			due = append(due, target{userID, e.gen})
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		c.refresh(t.userID, t.gen)
	}
}
