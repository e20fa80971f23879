// Package estimate computes price estimates for list items from the user's
// purchase history.
package estimate

import (
	"fmt"

	"github.com/comprai/comprai/internal/model"
)

// FallbackUnitPrice is used when an item has no purchase history at all.
// It keeps totals plausible instead of silently showing zero.
const FallbackUnitPrice = 8.0

// recencyWeights favour the most recent purchases. Records beyond the fifth
// still contribute a little.
var recencyWeights = []float64{1.0, 0.8, 0.6, 0.4, 0.2}

const tailWeight = 0.1

// maxRecords caps how much history a single item estimate considers.
const maxRecords = 10

// PriceHistory is the slice of the price store the estimator needs.
type PriceHistory interface {
	RecentByName(userID int64, name string, limit int) ([]model.PriceRecord, error)
}

// ItemEstimate is the per-item result.
type ItemEstimate struct {
	ItemID     int64   `json:"item_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Total      float64 `json:"total"`
	Confidence int     `json:"confidence"`
}

// ListEstimate aggregates per-item estimates for a whole list.
type ListEstimate struct {
	Items      []ItemEstimate `json:"items"`
	Total      float64        `json:"total"`
	Confidence int            `json:"confidence"`
}

// Estimator prices items against a user's purchase history.
type Estimator struct {
	history PriceHistory
}

func New(history PriceHistory) *Estimator {
	return &Estimator{history: history}
}

// EstimateItem prices a single item. Confidence grows with the number of
// matching history records, 20 points per record up to 100. With no history
// the fallback unit price is used at zero confidence.
func (e *Estimator) EstimateItem(userID int64, item *model.Item) (ItemEstimate, error) {
	est := ItemEstimate{
		ItemID:   item.ID,
		Name:     item.Name,
		Quantity: item.Quantity,
	}
	if est.Quantity <= 0 {
		est.Quantity = 1
	}

	records, err := e.history.RecentByName(userID, item.Name, maxRecords)
	if err != nil {
		return est, fmt.Errorf("load price history for %q: %w", item.Name, err)
	}

	if len(records) == 0 {
		est.UnitPrice = FallbackUnitPrice
		est.Total = round2(est.UnitPrice * est.Quantity)
		est.Confidence = 0
		return est, nil
	}

	var weightedSum, weightTotal float64
	for i, rec := range records {
		w := tailWeight
		if i < len(recencyWeights) {
			w = recencyWeights[i]
		}
		weightedSum += rec.UnitPrice * w
		weightTotal += w
	}

	est.UnitPrice = round2(weightedSum / weightTotal)
	est.Total = round2(est.UnitPrice * est.Quantity)
	est.Confidence = min(len(records)*20, 100)
	return est, nil
}

// EstimateList prices every unchecked item on a list. The aggregate
// confidence is the plain average of item confidences.
func (e *Estimator) EstimateList(userID int64, items []*model.Item) (*ListEstimate, error) {
	result := &ListEstimate{Items: make([]ItemEstimate, 0, len(items))}

	var confidenceSum int
	for _, item := range items {
		if item.Checked {
			continue
		}
		est, err := e.EstimateItem(userID, item)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, est)
		result.Total += est.Total
		confidenceSum += est.Confidence
	}

	result.Total = round2(result.Total)
	if len(result.Items) > 0 {
		result.Confidence = confidenceSum / len(result.Items)
	}
	return result, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
