package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SuggestedItem is one item proposed by the model for a free-text prompt.
type SuggestedItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category,omitempty"`
}

// ValidationResult is the second-pass check over suggested items. The model
// may filter out items it judges inappropriate for a shopping list.
type ValidationResult struct {
	Items      []SuggestedItem `json:"items"`
	Confidence float64         `json:"confidence"`
}

const suggestSystemPrompt = `Você é um assistente de listas de compras. ` +
	`Dado um pedido do usuário, responda com JSON no formato ` +
	`{"items": [{"name": string, "quantity": number, "unit": string, "category": string}]}. ` +
	`Use nomes curtos de produtos, quantidades realistas e unidades comuns (un, kg, g, L, ml, pct).`

// SuggestItems turns a free-text prompt into structured items. An empty
// result is returned as-is; deciding that zero suggestions is an error is the
// caller's job.
func (c *Client) SuggestItems(ctx context.Context, prompt string) ([]SuggestedItem, error) {
	content, err := c.complete(ctx, suggestSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("suggest items: %w", err)
	}

	var parsed struct {
		Items []SuggestedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}

	items := parsed.Items[:0]
	for _, item := range parsed.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		items = append(items, item)
	}
	return items, nil
}

const validateSystemPrompt = `Você revisa itens sugeridos para uma lista de compras. ` +
	`Remova itens que não sejam produtos compráveis em mercado e responda com JSON ` +
	`{"items": [...], "confidence": number entre 0 e 1} mantendo o formato de cada item.`

// ValidateItems runs the secondary validation pass. Callers should fall back
// to the unvalidated items if this returns an error.
func (c *Client) ValidateItems(ctx context.Context, items []SuggestedItem) (*ValidationResult, error) {
	payload, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	content, err := c.complete(ctx, validateSystemPrompt, string(payload))
	if err != nil {
		return nil, fmt.Errorf("validate items: %w", err)
	}

	var result ValidationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse validation: %w", err)
	}
	return &result, nil
}
