package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/cache"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
	"github.com/comprai/comprai/internal/websocket"
)

type MemberHandler struct {
	memberStore *store.MembershipStore
	overview    *cache.OverviewCache
	access      *Access
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewMemberHandler(ms *store.MembershipStore, overview *cache.OverviewCache, access *Access, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{memberStore: ms, overview: overview, access: access, hub: hub, logger: logger}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ok, err := h.access.CanView(listID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	members, err := h.memberStore.ListMembers(listID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

// Leave deactivates the caller's own membership.
func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	m, err := h.memberStore.Get(listID, userID)
	if err != nil {
		h.logger.Error("load membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to leave list")
		return
	}
	if m == nil || !m.Active {
		writeError(w, http.StatusNotFound, "not a member of this list")
		return
	}

	if err := h.memberStore.Deactivate(listID, userID); err != nil {
		h.logger.Error("deactivate membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to leave list")
		return
	}

	h.overview.Invalidate(userID)
	if h.hub != nil {
		h.hub.Publish(websocket.NewMessage("member", "delete", listID, userID, nil))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove deactivates a membership. The owner can remove anyone; members can
// remove themselves (leave the list).
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	memberID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	userID := auth.UserID(r.Context())
	if memberID != userID {
		isOwner, err := h.access.IsOwner(listID, userID)
		if err != nil {
			h.logger.Error("check list owner", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to remove member")
			return
		}
		if !isOwner {
			writeError(w, http.StatusForbidden, "only the owner can remove members")
			return
		}
	}

	m, err := h.memberStore.Get(listID, memberID)
	if err != nil {
		h.logger.Error("load membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if m == nil || !m.Active {
		writeError(w, http.StatusNotFound, "membership not found")
		return
	}

	if err := h.memberStore.Deactivate(listID, memberID); err != nil {
		h.logger.Error("deactivate membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	h.overview.Invalidate(memberID)
	if h.hub != nil {
		h.hub.Publish(websocket.NewMessage("member", "delete", listID, memberID, nil))
	}
	w.WriteHeader(http.StatusNoContent)
}
