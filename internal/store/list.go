package store

import (
	"database/sql"
	"fmt"

	"github.com/comprai/comprai/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

func scanList(scanner interface{ Scan(...any) error }) (*model.List, error) {
	var l model.List
	err := scanner.Scan(&l.ID, &l.Name, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const listCols = `id, name, owner_id, created_at, updated_at`

func (s *ListStore) Create(name string, ownerID int64) (*model.List, error) {
	result, err := s.db.Exec(
		`INSERT INTO lists (name, owner_id) VALUES (?, ?)`,
		name, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) GetByID(id int64) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

func (s *ListStore) Rename(id int64, name string) (*model.List, error) {
	_, err := s.db.Exec(
		`UPDATE lists SET name = ?, updated_at = datetime('now') WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename list: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// Touch bumps a list's updated_at after an item mutation.
func (s *ListStore) Touch(id int64) error {
	_, err := s.db.Exec(`UPDATE lists SET updated_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("touch list: %w", err)
	}
	return nil
}

// Summaries returns the overview rows for every list the user owns or is an
// active member of, with item counts over non-deleted items.
func (s *ListStore) Summaries(userID int64) ([]model.ListSummary, error) {
	rows, err := s.db.Query(`
		SELECT l.id, l.name, l.owner_id,
		       CASE WHEN l.owner_id = ? THEN 'edit' ELSE m.permission END,
		       (SELECT COUNT(*) FROM items i WHERE i.list_id = l.id AND i.deleted = 0),
		       (SELECT COUNT(*) FROM items i WHERE i.list_id = l.id AND i.deleted = 0 AND i.checked = 1),
		       l.updated_at
		FROM lists l
		LEFT JOIN memberships m ON m.list_id = l.id AND m.user_id = ? AND m.active = 1
		WHERE l.owner_id = ? OR m.id IS NOT NULL
		ORDER BY l.updated_at DESC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.ListSummary
	for rows.Next() {
		var sum model.ListSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.OwnerID, &sum.Permission, &sum.ItemCount, &sum.CheckedCount, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
