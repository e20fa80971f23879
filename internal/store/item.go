package store

import (
	"database/sql"
	"fmt"

	"github.com/comprai/comprai/internal/model"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var addedBy sql.NullInt64
	var deletedAt sql.NullTime
	var checked, deleted int

	err := scanner.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
		&item.Category, &checked, &deleted, &deletedAt, &addedBy,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Checked = checked != 0
	item.Deleted = deleted != 0
	if deletedAt.Valid {
		item.DeletedAt = &deletedAt.Time
	}
	if addedBy.Valid {
		item.AddedBy = &addedBy.Int64
	}
	return &item, nil
}

const itemCols = `id, list_id, name, quantity, unit, category, checked, deleted, deleted_at, added_by, created_at, updated_at`

func (s *ItemStore) GetByID(id int64) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) Create(listID int64, name string, quantity float64, unit, category string, addedBy *int64) (*model.Item, error) {
	var aBy sql.NullInt64
	if addedBy != nil {
		aBy = sql.NullInt64{Int64: *addedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO items (list_id, name, quantity, unit, category, added_by) VALUES (?, ?, ?, ?, ?, ?)`,
		listID, name, quantity, unit, category, aBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// ListByList returns the non-deleted items of a list, unchecked first.
func (s *ItemStore) ListByList(listID int64) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE list_id = ? AND deleted = 0 ORDER BY checked ASC, category ASC, created_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListDeleted returns the soft-deleted items of a list, most recently deleted first.
func (s *ItemStore) ListDeleted(listID int64) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE list_id = ? AND deleted = 1 ORDER BY deleted_at DESC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list deleted items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Update overwrites name, quantity, unit, and category. Concurrent edits are
// last write wins; no version check is performed.
func (s *ItemStore) Update(id int64, name string, quantity float64, unit, category string) (*model.Item, error) {
	_, err := s.db.Exec(
		`UPDATE items SET name = ?, quantity = ?, unit = ?, category = ?, updated_at = datetime('now') WHERE id = ?`,
		name, quantity, unit, category, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) ToggleChecked(id int64) (*model.Item, error) {
	item, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	checked := 0
	if !item.Checked {
		checked = 1
	}
	_, err = s.db.Exec(
		`UPDATE items SET checked = ?, updated_at = datetime('now') WHERE id = ?`,
		checked, id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle checked: %w", err)
	}
	return s.GetByID(id)
}

// SoftDelete marks the item deleted and stamps deleted_at. The row is kept so
// the item can be restored.
func (s *ItemStore) SoftDelete(id int64) (*model.Item, error) {
	_, err := s.db.Exec(
		`UPDATE items SET deleted = 1, deleted_at = datetime('now'), updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("soft delete item: %w", err)
	}
	return s.GetByID(id)
}

// Restore clears the soft-delete flag and timestamp.
func (s *ItemStore) Restore(id int64) (*model.Item, error) {
	_, err := s.db.Exec(
		`UPDATE items SET deleted = 0, deleted_at = NULL, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("restore item: %w", err)
	}
	return s.GetByID(id)
}

// AutocompleteNames returns distinct item names across the user's lists and
// purchase history matching the prefix, most frequently used first.
func (s *ItemStore) AutocompleteNames(userID int64, prefix string, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT name FROM (
			SELECT i.name AS name, COUNT(*) AS uses
			FROM items i
			JOIN lists l ON l.id = i.list_id
			LEFT JOIN memberships m ON m.list_id = l.id AND m.user_id = ? AND m.active = 1
			WHERE (l.owner_id = ? OR m.id IS NOT NULL) AND i.name LIKE ? COLLATE NOCASE
			GROUP BY i.name
			UNION
			SELECT item_name AS name, COUNT(*) AS uses
			FROM price_history
			WHERE user_id = ? AND item_name LIKE ? COLLATE NOCASE
			GROUP BY item_name
		)
		GROUP BY name ORDER BY MAX(uses) DESC, name ASC LIMIT ?`,
		userID, userID, prefix+"%", userID, prefix+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("autocomplete names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
