package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// MonthSpend is one month of purchase history fed to the prediction prompt.
type MonthSpend struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
}

// Prediction is the model's spending forecast for the next month.
type Prediction struct {
	NextMonthTotal float64 `json:"next_month_total"`
	Trend          string  `json:"trend"` // rising, falling, stable
	Summary        string  `json:"summary"`
}

const predictSystemPrompt = `Você analisa gastos mensais de compras de mercado. ` +
	`Dado o histórico, responda com JSON {"next_month_total": number, ` +
	`"trend": "rising"|"falling"|"stable", "summary": string curta em português}.`

// PredictSpending asks the model for a next-month forecast over the given
// history. Callers fall back to a history-only projection when this fails.
func (c *Client) PredictSpending(ctx context.Context, history []MonthSpend) (*Prediction, error) {
	payload, err := json.Marshal(map[string]any{"months": history})
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	content, err := c.complete(ctx, predictSystemPrompt, string(payload))
	if err != nil {
		return nil, fmt.Errorf("predict spending: %w", err)
	}

	var p Prediction
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &p, nil
}
