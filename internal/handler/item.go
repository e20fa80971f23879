package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
	appsync "github.com/comprai/comprai/internal/sync"
	"github.com/comprai/comprai/internal/websocket"
)

type ItemHandler struct {
	itemStore *store.ItemStore
	listStore *store.ListStore
	mirror    *appsync.Mirror
	access    *Access
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewItemHandler(is *store.ItemStore, ls *store.ListStore, mirror *appsync.Mirror, access *Access, hub *websocket.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{itemStore: is, listStore: ls, mirror: mirror, access: access, hub: hub, logger: logger}
}

func (h *ItemHandler) publish(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Publish(msg)
	}
}

// touchList bumps the list's updated_at so overview rows sort correctly.
func (h *ItemHandler) touchList(listID int64) {
	if err := h.listStore.Touch(listID); err != nil {
		h.logger.Warn("touch list", "list_id", listID, "error", err)
	}
}

type itemRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	userID := auth.UserID(r.Context())
	ok, err := h.access.CanEdit(listID, userID)
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add item")
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "edit permission required")
		return
	}

	item, err := h.itemStore.Create(listID, req.Name, req.Quantity, req.Unit, req.Category, &userID)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add item")
		return
	}

	h.touchList(listID)
	h.publish(websocket.NewMessage("item", "insert", listID, item.ID, item))
	writeJSON(w, http.StatusCreated, item)
}

// List returns the active items of a list. A warm mirror serves the read
// from memory; a cold one is seeded from the store first, after which hub
// events keep it current.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	h.listItems(w, r, h.loadActive)
}

func (h *ItemHandler) loadActive(listID int64) ([]model.Item, error) {
	if h.mirror != nil {
		if items, ok := h.mirror.Snapshot(listID); ok {
			return items, nil
		}
	}
	items, err := h.itemStore.ListByList(listID)
	if err != nil {
		return nil, err
	}
	if h.mirror != nil {
		h.mirror.Seed(listID, items)
	}
	return items, nil
}

// ListDeleted returns the soft-deleted items of a list, most recently
// deleted first.
func (h *ItemHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	h.listItems(w, r, h.itemStore.ListDeleted)
}

func (h *ItemHandler) listItems(w http.ResponseWriter, r *http.Request, load func(int64) ([]model.Item, error)) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ok, err := h.access.CanView(listID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	items, err := load(listID)
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// loadForEdit fetches the item and checks the caller can edit its list.
// A nil item with a nil error means the response was already written.
func (h *ItemHandler) loadForEdit(w http.ResponseWriter, r *http.Request) *model.Item {
	itemID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}

	item, err := h.itemStore.GetByID(itemID)
	if err != nil {
		h.logger.Error("load item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return nil
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return nil
	}

	ok, err := h.access.CanEdit(item.ListID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return nil
	}
	if !ok {
		writeError(w, http.StatusForbidden, "edit permission required")
		return nil
	}
	return item
}

// Update overwrites the item's fields. Concurrent updates resolve to
// whichever write lands last.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.loadForEdit(w, r)
	if item == nil {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	updated, err := h.itemStore.Update(item.ID, req.Name, req.Quantity, req.Unit, req.Category)
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.touchList(updated.ListID)
	h.publish(websocket.NewMessage("item", "update", updated.ListID, updated.ID, updated))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ItemHandler) ToggleChecked(w http.ResponseWriter, r *http.Request) {
	item := h.loadForEdit(w, r)
	if item == nil {
		return
	}

	updated, err := h.itemStore.ToggleChecked(item.ID)
	if err != nil {
		h.logger.Error("toggle item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle item")
		return
	}

	h.touchList(updated.ListID)
	h.publish(websocket.NewMessage("item", "update", updated.ListID, updated.ID, updated))
	writeJSON(w, http.StatusOK, updated)
}

// Delete soft-deletes the item. It disappears from the list but can be
// restored from the deleted items view.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.loadForEdit(w, r)
	if item == nil {
		return
	}

	deleted, err := h.itemStore.SoftDelete(item.ID)
	if err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.touchList(deleted.ListID)
	h.publish(websocket.NewMessage("item", "delete", deleted.ListID, deleted.ID, deleted))
	writeJSON(w, http.StatusOK, deleted)
}

// Restore brings a soft-deleted item back onto the list.
func (h *ItemHandler) Restore(w http.ResponseWriter, r *http.Request) {
	item := h.loadForEdit(w, r)
	if item == nil {
		return
	}
	if !item.Deleted {
		writeError(w, http.StatusConflict, "item is not deleted")
		return
	}

	restored, err := h.itemStore.Restore(item.ID)
	if err != nil {
		h.logger.Error("restore item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to restore item")
		return
	}

	h.touchList(restored.ListID)
	h.publish(websocket.NewMessage("item", "update", restored.ListID, restored.ID, restored))
	writeJSON(w, http.StatusOK, restored)
}

// Autocomplete suggests item names matching a prefix, drawn from the user's
// lists and purchase history.
func (h *ItemHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	names, err := h.itemStore.AutocompleteNames(auth.UserID(r.Context()), prefix, limit)
	if err != nil {
		h.logger.Error("autocomplete", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to autocomplete")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}
