package handler

import (
	"log/slog"
	"net/http"

	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/stats"
)

type StatsHandler struct {
	service *stats.Service
	logger  *slog.Logger
}

func NewStatsHandler(service *stats.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{service: service, logger: logger}
}

func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("load stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *StatsHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	prediction, err := h.service.Predict(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Warn("prediction unavailable", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "not enough history to predict")
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}
