package handler

import (
	"log/slog"
	"net/http"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/estimate"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
)

type EstimateHandler struct {
	estimator *estimate.Estimator
	itemStore *store.ItemStore
	access    *Access
	logger    *slog.Logger
}

func NewEstimateHandler(e *estimate.Estimator, is *store.ItemStore, access *Access, logger *slog.Logger) *EstimateHandler {
	return &EstimateHandler{estimator: e, itemStore: is, access: access, logger: logger}
}

// EstimateList prices the unchecked items of a list against the caller's
// purchase history.
func (h *EstimateHandler) EstimateList(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.access.CanView(listID, userID)
	if err != nil {
		h.logger.Error("check list access", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to estimate")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	items, err := h.itemStore.ListByList(listID)
	if err != nil {
		h.logger.Error("load items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to estimate")
		return
	}

	ptrs := make([]*model.Item, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}

	result, err := h.estimator.EstimateList(userID, ptrs)
	if err != nil {
		h.logger.Error("estimate list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to estimate")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
