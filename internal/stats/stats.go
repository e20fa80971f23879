// Package stats reports spending history and projects next month's total.
package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/comprai/comprai/internal/ai"
	"github.com/comprai/comprai/internal/store"
)

const (
	historyMonths = 6
	topItemsLimit = 10
)

// Overview is the spending summary returned by the stats endpoint.
type Overview struct {
	Months   []store.MonthlyTotal `json:"months"`
	TopItems []store.TopItem      `json:"top_items"`
	Total    float64              `json:"total"`
}

// Predictor is the slice of the AI client the service uses.
type Predictor interface {
	Configured() bool
	PredictSpending(ctx context.Context, history []ai.MonthSpend) (*ai.Prediction, error)
}

// Service computes spending statistics from the price history.
type Service struct {
	prices    *store.PriceStore
	predictor Predictor
	logger    *slog.Logger
}

func NewService(prices *store.PriceStore, predictor Predictor, logger *slog.Logger) *Service {
	return &Service{prices: prices, predictor: predictor, logger: logger}
}

// Overview returns the user's recent monthly totals and top items.
func (s *Service) Overview(userID int64) (*Overview, error) {
	months, err := s.prices.MonthlyTotals(userID, historyMonths)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	top, err := s.prices.TopItems(userID, topItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}

	overview := &Overview{Months: months, TopItems: top}
	for _, m := range months {
		overview.Total += m.Total
	}
	return overview, nil
}

// Predict projects next month's spend. It asks the model when one is
// configured and falls back to a linear projection over the history when the
// model is unavailable or fails.
func (s *Service) Predict(ctx context.Context, userID int64) (*ai.Prediction, error) {
	months, err := s.prices.MonthlyTotals(userID, historyMonths)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	if len(months) == 0 {
		return nil, fmt.Errorf("no purchase history")
	}

	history := make([]ai.MonthSpend, len(months))
	for i, m := range months {
		history[i] = ai.MonthSpend{Month: m.Month, Total: m.Total}
	}

	if s.predictor != nil && s.predictor.Configured() {
		p, err := s.predictor.PredictSpending(ctx, history)
		if err == nil {
			return p, nil
		}
		s.logger.Warn("model prediction failed, using linear projection", "error", err)
	}

	return linearProjection(history), nil
}

// linearProjection extrapolates the last month plus the average month-over-
// month delta. With a single month of history it repeats that month.
func linearProjection(history []ai.MonthSpend) *ai.Prediction {
	last := history[len(history)-1].Total
	if len(history) == 1 {
		return &ai.Prediction{
			NextMonthTotal: last,
			Trend:          "stable",
			Summary:        "Projeção baseada em um único mês de histórico.",
		}
	}

	var deltaSum float64
	for i := 1; i < len(history); i++ {
		deltaSum += history[i].Total - history[i-1].Total
	}
	avgDelta := deltaSum / float64(len(history)-1)

	next := last + avgDelta
	if next < 0 {
		next = 0
	}

	trend := "stable"
	switch {
	case avgDelta > last*0.05:
		trend = "rising"
	case avgDelta < -last*0.05:
		trend = "falling"
	}

	return &ai.Prediction{
		NextMonthTotal: next,
		Trend:          trend,
		Summary:        "Projeção linear sobre o histórico de compras.",
	}
}
