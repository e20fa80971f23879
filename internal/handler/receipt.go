package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/comprai/comprai/internal/ai"
	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/store"
)

type ReceiptHandler struct {
	client     *ai.Client
	priceStore *store.PriceStore
	logger     *slog.Logger
}

func NewReceiptHandler(client *ai.Client, ps *store.PriceStore, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{client: client, priceStore: ps, logger: logger}
}

type receiptRequest struct {
	// Text is the OCR output of the receipt, produced on the client.
	Text string `json:"text"`
}

// Process parses receipt text into line items and records each one in the
// caller's price history.
func (h *ReceiptHandler) Process(w http.ResponseWriter, r *http.Request) {
	if h.client == nil || !h.client.Configured() {
		writeError(w, http.StatusServiceUnavailable, "receipt processing is not configured")
		return
	}

	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	receipt, err := h.client.ParseReceipt(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("parse receipt", "error", err)
		writeError(w, http.StatusBadGateway, "failed to parse receipt")
		return
	}
	if len(receipt.Lines) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no items recognized on receipt")
		return
	}

	purchasedAt := time.Now()
	if receipt.Date != "" {
		if t, err := time.Parse("2006-01-02", receipt.Date); err == nil {
			purchasedAt = t
		}
	}

	userID := auth.UserID(r.Context())
	saved := 0
	for _, line := range receipt.Lines {
		if line.Name == "" || line.UnitPrice <= 0 {
			continue
		}
		_, err := h.priceStore.Create(userID, line.Name, line.UnitPrice, line.Quantity, receipt.StoreName, purchasedAt)
		if err != nil {
			h.logger.Error("save price record", "item", line.Name, "error", err)
			continue
		}
		saved++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"receipt":     receipt,
		"saved_lines": saved,
	})
}
