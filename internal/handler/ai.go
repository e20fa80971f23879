package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/comprai/comprai/internal/ai"
	"github.com/comprai/comprai/internal/auth"
	"github.com/comprai/comprai/internal/cache"
	"github.com/comprai/comprai/internal/model"
	"github.com/comprai/comprai/internal/store"
	"github.com/comprai/comprai/internal/websocket"
)

type AIHandler struct {
	client    *ai.Client
	listStore *store.ListStore
	itemStore *store.ItemStore
	overview  *cache.OverviewCache
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewAIHandler(client *ai.Client, ls *store.ListStore, is *store.ItemStore, overview *cache.OverviewCache, hub *websocket.Hub, logger *slog.Logger) *AIHandler {
	return &AIHandler{client: client, listStore: ls, itemStore: is, overview: overview, hub: hub, logger: logger}
}

type aiRequest struct {
	Prompt   string `json:"prompt"`
	ListName string `json:"list_name"`
}

func (h *AIHandler) available(w http.ResponseWriter) bool {
	if h.client == nil || !h.client.Configured() {
		writeError(w, http.StatusServiceUnavailable, "AI suggestions are not configured")
		return false
	}
	return true
}

// Suggest turns a free-text prompt into suggested items without touching
// any list.
func (h *AIHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req aiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	items, confidence := h.suggestValidated(r.Context(), req.Prompt)
	if items == nil {
		writeError(w, http.StatusBadGateway, "failed to generate suggestions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"confidence": confidence,
	})
}

// CreateList generates suggestions for a prompt and materializes them as a
// new list. Nothing is created when the model returns no usable items, and
// the list is rolled back if inserting its items fails partway.
func (h *AIHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req aiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	suggestions, confidence := h.suggestValidated(r.Context(), req.Prompt)
	if suggestions == nil {
		writeError(w, http.StatusBadGateway, "failed to generate suggestions")
		return
	}
	if len(suggestions) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no suggestions for this prompt")
		return
	}

	name := strings.TrimSpace(req.ListName)
	if name == "" {
		name = listNameFromPrompt(req.Prompt)
	}

	userID := auth.UserID(r.Context())
	list, err := h.listStore.Create(name, userID)
	if err != nil {
		h.logger.Error("create list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create list")
		return
	}

	items := make([]model.Item, 0, len(suggestions))
	for _, s := range suggestions {
		item, err := h.itemStore.Create(list.ID, s.Name, s.Quantity, s.Unit, s.Category, &userID)
		if err != nil {
			h.logger.Error("insert suggested item", "error", err)
			if derr := h.listStore.Delete(list.ID); derr != nil {
				h.logger.Error("roll back list", "list_id", list.ID, "error", derr)
			}
			writeError(w, http.StatusInternalServerError, "failed to create list items")
			return
		}
		items = append(items, *item)
	}

	h.overview.Invalidate(userID)
	if h.hub != nil {
		h.hub.Publish(websocket.NewMessage("list", "insert", list.ID, list.ID, nil))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"list":       list,
		"items":      items,
		"confidence": confidence,
	})
}

// suggestValidated runs the suggestion pass and then the validation pass.
// A validation failure falls back to the unvalidated items. A nil return
// means the suggestion pass itself failed.
func (h *AIHandler) suggestValidated(ctx context.Context, prompt string) ([]ai.SuggestedItem, float64) {
	items, err := h.client.SuggestItems(ctx, prompt)
	if err != nil {
		h.logger.Error("suggest items", "error", err)
		return nil, 0
	}
	if len(items) == 0 {
		return []ai.SuggestedItem{}, 0
	}

	result, err := h.client.ValidateItems(ctx, items)
	if err != nil {
		h.logger.Warn("validation failed, using unvalidated suggestions", "error", err)
		return items, 0
	}
	return result.Items, result.Confidence
}

// listNameFromPrompt derives a short list name from the prompt text,
// preferring a word boundary and never splitting a multibyte rune.
func listNameFromPrompt(prompt string) string {
	const maxLen = 40
	name := strings.Join(strings.Fields(prompt), " ")
	if len(name) <= maxLen {
		return name
	}

	end := 0
	for i := range name {
		if i > maxLen {
			break
		}
		end = i
	}
	cut := name[:end]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
