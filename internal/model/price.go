package model

import "time"

// PriceRecord is one historical purchase price for an item, usually captured
// from a processed receipt. Estimation and statistics read these.
type PriceRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ItemName    string    `json:"item_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    float64   `json:"quantity"`
	StoreName   string    `json:"store_name,omitempty"`
	PurchasedAt time.Time `json:"purchased_at"`
	CreatedAt   time.Time `json:"created_at"`
}
