package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/notify"
)

type NotifyHandler struct {
	dispatcher *notify.Dispatcher
	access     *Access
	logger     *slog.Logger
}

func NewNotifyHandler(d *notify.Dispatcher, access *Access, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{dispatcher: d, access: access, logger: logger}
}

type notifyRequest struct {
	ListID  int64  `json:"list_id"`
	Message string `json:"message"`
}

// Notify pushes a message about a list to its other participants. Channel
// failures are reported in the counts, never as a request error.
func (h *NotifyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.ListID == 0 || req.Message == "" {
		writeError(w, http.StatusBadRequest, "list_id and message are required")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.access.CanView(req.ListID, userID)
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to notify")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	result, err := h.dispatcher.ListUpdated(req.ListID, userID, req.Message)
	if err != nil {
		h.logger.Error("dispatch notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to notify")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
