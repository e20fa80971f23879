package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/cache"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
	"github.com/comprai/comprai/internal/websocket"
)

type ListHandler struct {
	listStore   *store.ListStore
	itemStore   *store.ItemStore
	memberStore *store.MembershipStore
	overview    *cache.OverviewCache
	access      *Access
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewListHandler(ls *store.ListStore, is *store.ItemStore, ms *store.MembershipStore, overview *cache.OverviewCache, access *Access, hub *websocket.Hub, logger *slog.Logger) *ListHandler {
	return &ListHandler{
		listStore:   ls,
		itemStore:   is,
		memberStore: ms,
		overview:    overview,
		access:      access,
		hub:         hub,
		logger:      logger,
	}
}

func (h *ListHandler) publish(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Publish(msg)
	}
}

// Overview returns the user's lists with item counts, served from the
// staleness-window cache.
func (h *ListHandler) Overview(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.overview.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("load list overview", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load lists")
		return
	}
	if summaries == nil {
		summaries = []model.ListSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

type listRequest struct {
	Name string `json:"name"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	list, err := h.listStore.Create(req.Name, userID)
	if err != nil {
		h.logger.Error("create list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create list")
		return
	}

	h.overview.Invalidate(userID)
	writeJSON(w, http.StatusCreated, list)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.access.CanView(listID, userID)
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load list")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	list, err := h.listStore.GetByID(listID)
	if err != nil || list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	items, err := h.itemStore.ListByList(listID)
	if err != nil {
		h.logger.Error("load list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load list")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	if err := h.memberStore.TouchLastSeen(listID, userID); err != nil {
		h.logger.Warn("touch last seen", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"list":  list,
		"items": items,
	})
}

func (h *ListHandler) Rename(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.access.CanEdit(listID, userID)
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rename list")
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "edit permission required")
		return
	}

	list, err := h.listStore.Rename(listID, req.Name)
	if err != nil {
		h.logger.Error("rename list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rename list")
		return
	}

	h.overview.Invalidate(userID)
	h.publish(websocket.NewMessage("list", "update", listID, listID, nil))
	writeJSON(w, http.StatusOK, list)
}

// Delete removes a list permanently. Only the owner may delete.
func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.access.IsOwner(listID, userID)
	if err != nil {
		h.logger.Error("check list owner", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "only the owner can delete a list")
		return
	}

	if err := h.listStore.Delete(listID); err != nil {
		h.logger.Error("delete list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}

	h.overview.Invalidate(userID)
	h.publish(websocket.NewMessage("list", "delete", listID, listID, nil))
	w.WriteHeader(http.StatusNoContent)
}
