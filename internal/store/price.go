package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/comprai/comprai/internal/model"
)

type PriceStore struct {
	db *sql.DB
}

func NewPriceStore(db *sql.DB) *PriceStore {
	return &PriceStore{db: db}
}

func scanPriceRecord(scanner interface{ Scan(...any) error }) (*model.PriceRecord, error) {
	var p model.PriceRecord
	err := scanner.Scan(&p.ID, &p.UserID, &p.ItemName, &p.UnitPrice, &p.Quantity, &p.StoreName, &p.PurchasedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const priceCols = `id, user_id, item_name, unit_price, quantity, store_name, purchased_at, created_at`

func (s *PriceStore) Create(userID int64, itemName string, unitPrice, quantity float64, storeName string, purchasedAt time.Time) (*model.PriceRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO price_history (user_id, item_name, unit_price, quantity, store_name, purchased_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, itemName, unitPrice, quantity, storeName, purchasedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert price record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+priceCols+` FROM price_history WHERE id = ?`, id)
	return scanPriceRecord(row)
}

// RecentByName returns up to limit of the user's most recent price records
// whose item name partially matches the given name, case-insensitive.
func (s *PriceStore) RecentByName(userID int64, name string, limit int) ([]model.PriceRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+priceCols+` FROM price_history
		 WHERE user_id = ? AND item_name LIKE ? COLLATE NOCASE
		 ORDER BY purchased_at DESC LIMIT ?`,
		userID, "%"+name+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent prices by name: %w", err)
	}
	defer rows.Close()
	return collectPriceRecords(rows)
}

func collectPriceRecords(rows *sql.Rows) ([]model.PriceRecord, error) {
	var records []model.PriceRecord
	for rows.Next() {
		p, err := scanPriceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price record: %w", err)
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

// MonthlyTotal is the sum of purchases in one calendar month.
type MonthlyTotal struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// MonthlyTotals returns per-month spend for the user over the last N months,
// oldest first.
func (s *PriceStore) MonthlyTotals(userID int64, months int) ([]MonthlyTotal, error) {
	rows, err := s.db.Query(
		`SELECT strftime('%Y-%m', purchased_at) AS month,
		        SUM(unit_price * quantity), COUNT(*)
		 FROM price_history
		 WHERE user_id = ? AND purchased_at >= datetime('now', ?)
		 GROUP BY month ORDER BY month ASC`,
		userID, fmt.Sprintf("-%d months", months),
	)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []MonthlyTotal
	for rows.Next() {
		var t MonthlyTotal
		if err := rows.Scan(&t.Month, &t.Total, &t.Count); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// TopItem is an item ranked by total spend.
type TopItem struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// TopItems returns the user's items ranked by total spend, highest first.
func (s *PriceStore) TopItems(userID int64, limit int) ([]TopItem, error) {
	rows, err := s.db.Query(
		`SELECT item_name, SUM(unit_price * quantity), COUNT(*)
		 FROM price_history WHERE user_id = ?
		 GROUP BY item_name COLLATE NOCASE
		 ORDER BY SUM(unit_price * quantity) DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	var items []TopItem
	for rows.Next() {
		var t TopItem
		if err := rows.Scan(&t.Name, &t.Total, &t.Count); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
