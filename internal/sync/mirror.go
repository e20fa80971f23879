// Package sync keeps an in-memory mirror of list items, updated from the
// realtime event stream. The mirror is disposable: it holds no state the
// database does not, and can be rebuilt from it at any time.
package sync

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/websocket"
)

// Mirror applies item insert/update/delete events to per-list in-memory item
// sets. Events are applied in arrival order; for the same row the last write
// wins, matching the store's own semantics.
type Mirror struct {
	mu     sync.RWMutex
	lists  map[int64]map[int64]model.Item
	logger *slog.Logger
}

func NewMirror(logger *slog.Logger) *Mirror {
	return &Mirror{
		lists:  make(map[int64]map[int64]model.Item),
		logger: logger,
	}
}

// OnEvent implements websocket.Listener.
func (m *Mirror) OnEvent(msg websocket.Message) {
	switch msg.Entity {
	case "item":
		m.applyItem(msg)
	case "list":
		if msg.Action == "delete" {
			m.Drop(msg.ListID)
		}
	}
}

func (m *Mirror) applyItem(msg websocket.Message) {
	if msg.Item == nil {
		if msg.Action == "delete" {
			m.remove(msg.ListID, msg.ID)
			return
		}
		m.logger.Warn("item event without payload", "action", msg.Action, "id", msg.ID)
		return
	}

	switch msg.Action {
	case "insert":
		// Deduplicated by ID; soft-deleted rows never enter the set.
		if msg.Item.Deleted {
			return
		}
		m.mu.Lock()
		set := m.set(msg.ListID)
		if _, exists := set[msg.Item.ID]; !exists {
			set[msg.Item.ID] = *msg.Item
		}
		m.mu.Unlock()
	case "update":
		// A row whose soft-delete flag is now set leaves the set. An update
		// for an absent row inserts it, which covers restores.
		if msg.Item.Deleted {
			m.remove(msg.ListID, msg.Item.ID)
			return
		}
		m.mu.Lock()
		m.set(msg.ListID)[msg.Item.ID] = *msg.Item
		m.mu.Unlock()
	case "delete":
		m.remove(msg.ListID, msg.Item.ID)
	default:
		m.logger.Warn("unknown item action", "action", msg.Action)
	}
}

// set returns the item set for a list, creating it if needed. Callers must
// hold the write lock.
func (m *Mirror) set(listID int64) map[int64]model.Item {
	set, ok := m.lists[listID]
	if !ok {
		set = make(map[int64]model.Item)
		m.lists[listID] = set
	}
	return set
}

func (m *Mirror) remove(listID, itemID int64) {
	m.mu.Lock()
	if set, ok := m.lists[listID]; ok {
		delete(set, itemID)
	}
	m.mu.Unlock()
}

// Seed replaces a list's mirror with rows fetched from the store.
func (m *Mirror) Seed(listID int64, items []model.Item) {
	set := make(map[int64]model.Item, len(items))
	for _, item := range items {
		if item.Deleted {
			continue
		}
		set[item.ID] = item
	}
	m.mu.Lock()
	m.lists[listID] = set
	m.mu.Unlock()
}

// Drop discards a list's mirror.
func (m *Mirror) Drop(listID int64) {
	m.mu.Lock()
	delete(m.lists, listID)
	m.mu.Unlock()
}

// Snapshot returns the mirrored items of a list and whether the list is
// mirrored at all. Ordering matches the store's item listing, unchecked rows
// first, then by category and creation time, so a mirror read can stand in
// for a store read.
func (m *Mirror) Snapshot(listID int64) ([]model.Item, bool) {
	m.mu.RLock()
	set, ok := m.lists[listID]
	if !ok {
		m.mu.RUnlock()
		return nil, false
	}
	items := make([]model.Item, 0, len(set))
	for _, item := range set {
		items = append(items, item)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Checked != b.Checked {
			return !a.Checked
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return items, true
}

// Len returns the number of mirrored items for a list.
func (m *Mirror) Len(listID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lists[listID])
}
