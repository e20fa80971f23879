package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/cache"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
	"github.com/comprai/comprai/internal/websocket"
)

type ShareHandler struct {
	shareStore  *store.ShareCodeStore
	listStore   *store.ListStore
	memberStore *store.MembershipStore
	overview    *cache.OverviewCache
	access      *Access
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewShareHandler(ss *store.ShareCodeStore, ls *store.ListStore, ms *store.MembershipStore, overview *cache.OverviewCache, access *Access, hub *websocket.Hub, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareStore:  ss,
		listStore:   ls,
		memberStore: ms,
		overview:    overview,
		access:      access,
		hub:         hub,
		logger:      logger,
	}
}

type shareRequest struct {
	Permission string `json:"permission"`
	SingleUse  bool   `json:"single_use"`
	TTLHours   int    `json:"ttl_hours"`
}

// Create issues a share code for a list. Only the owner can share.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Permission == "" {
		req.Permission = model.PermissionEdit
	}
	if req.Permission != model.PermissionEdit && req.Permission != model.PermissionReadonly {
		writeError(w, http.StatusBadRequest, "permission must be edit or readonly")
		return
	}

	userID := auth.UserID(r.Context())
	isOwner, err := h.access.IsOwner(listID, userID)
	if err != nil {
		h.logger.Error("check list owner", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create share code")
		return
	}
	if !isOwner {
		writeError(w, http.StatusForbidden, "only the owner can share a list")
		return
	}

	var expiresAt *time.Time
	if req.TTLHours > 0 {
		t := time.Now().Add(time.Duration(req.TTLHours) * time.Hour)
		expiresAt = &t
	}

	code, err := h.shareStore.Create(listID, req.Permission, req.SingleUse, expiresAt, userID)
	if err != nil {
		h.logger.Error("create share code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create share code")
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

// Codes lists the share codes issued for a list. Owner only.
func (h *ShareHandler) Codes(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	isOwner, err := h.access.IsOwner(listID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("check list owner", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list share codes")
		return
	}
	if !isOwner {
		writeError(w, http.StatusForbidden, "only the owner can view share codes")
		return
	}

	codes, err := h.shareStore.ListByList(listID)
	if err != nil {
		h.logger.Error("list share codes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list share codes")
		return
	}
	if codes == nil {
		codes = []model.ShareCode{}
	}
	writeJSON(w, http.StatusOK, codes)
}

// Preview validates a code without redeeming it, so the client can show the
// list name before the user commits to joining.
func (h *ShareHandler) Preview(w http.ResponseWriter, r *http.Request) {
	code, ok := h.validate(w, r.PathValue("code"))
	if !ok {
		return
	}

	list, err := h.listStore.GetByID(code.ListID)
	if err != nil || list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"list_name":  list.Name,
		"permission": code.Permission,
	})
}

// Join redeems a code, adding the caller to the list. Re-joining a list the
// user left reactivates the old membership.
func (h *ShareHandler) Join(w http.ResponseWriter, r *http.Request) {
	code, ok := h.validate(w, r.PathValue("code"))
	if !ok {
		return
	}

	userID := auth.UserID(r.Context())
	list, err := h.listStore.GetByID(code.ListID)
	if err != nil || list == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if list.OwnerID == userID {
		writeError(w, http.StatusConflict, "you already own this list")
		return
	}

	existing, err := h.memberStore.Get(code.ListID, userID)
	if err != nil {
		h.logger.Error("load membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join list")
		return
	}

	var membership *model.Membership
	switch {
	case existing == nil:
		membership, err = h.memberStore.Create(code.ListID, userID, code.Permission)
	case !existing.Active:
		membership, err = h.memberStore.Reactivate(code.ListID, userID, code.Permission)
	default:
		writeError(w, http.StatusConflict, "already a member of this list")
		return
	}
	if err != nil {
		h.logger.Error("create membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join list")
		return
	}

	if code.SingleUse {
		if err := h.shareStore.MarkUsed(code.ID, userID); err != nil {
			h.logger.Error("mark share code used", "error", err)
		}
	}

	h.overview.Invalidate(userID)
	if h.hub != nil {
		h.hub.Publish(websocket.NewMessage("member", "insert", code.ListID, userID, nil))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"list":       list,
		"membership": membership,
	})
}

// validate resolves a raw code and writes the error response on failure.
func (h *ShareHandler) validate(w http.ResponseWriter, raw string) (*model.ShareCode, bool) {
	code, err := h.shareStore.Validate(raw)
	switch {
	case err == nil:
		return code, true
	case errors.Is(err, store.ErrCodeNotFound):
		writeError(w, http.StatusNotFound, "share code not found")
	case errors.Is(err, store.ErrCodeExpired):
		writeError(w, http.StatusGone, "share code expired")
	case errors.Is(err, store.ErrCodeUsed):
		writeError(w, http.StatusGone, "share code already used")
	default:
		h.logger.Error("validate share code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate share code")
	}
	return nil, false
}
