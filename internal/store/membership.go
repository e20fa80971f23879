package store

import (
	"database/sql"
	"fmt"

	"github.com/comprai/comprai/internal/model"
)

type MembershipStore struct {
	db *sql.DB
}

func NewMembershipStore(db *sql.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func scanMembership(scanner interface{ Scan(...any) error }) (*model.Membership, error) {
	var m model.Membership
	var active int
	var lastSeen sql.NullTime

	err := scanner.Scan(&m.ID, &m.ListID, &m.UserID, &m.Permission, &active, &m.JoinedAt, &lastSeen)
	if err != nil {
		return nil, err
	}

	m.Active = active != 0
	if lastSeen.Valid {
		m.LastSeenAt = &lastSeen.Time
	}
	return &m, nil
}

const membershipCols = `id, list_id, user_id, permission, active, joined_at, last_seen_at`

// Get returns the membership row for a list/user pair, active or not.
func (s *MembershipStore) Get(listID, userID int64) (*model.Membership, error) {
	row := s.db.QueryRow(
		`SELECT `+membershipCols+` FROM memberships WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) Create(listID, userID int64, permission string) (*model.Membership, error) {
	_, err := s.db.Exec(
		`INSERT INTO memberships (list_id, user_id, permission) VALUES (?, ?, ?)`,
		listID, userID, permission,
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	return s.Get(listID, userID)
}

// Reactivate flips an inactive membership back on, updating the permission to
// the one carried by the redeemed share code.
func (s *MembershipStore) Reactivate(listID, userID int64, permission string) (*model.Membership, error) {
	_, err := s.db.Exec(
		`UPDATE memberships SET active = 1, permission = ?, joined_at = datetime('now') WHERE list_id = ? AND user_id = ?`,
		permission, listID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("reactivate membership: %w", err)
	}
	return s.Get(listID, userID)
}

// Deactivate marks the membership inactive. The row is kept so a later
// redemption can reactivate it.
func (s *MembershipStore) Deactivate(listID, userID int64) error {
	_, err := s.db.Exec(
		`UPDATE memberships SET active = 0 WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	if err != nil {
		return fmt.Errorf("deactivate membership: %w", err)
	}
	return nil
}

func (s *MembershipStore) TouchLastSeen(listID, userID int64) error {
	_, err := s.db.Exec(
		`UPDATE memberships SET last_seen_at = datetime('now') WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

// ListMembers returns the active members of a list joined with their profiles.
func (s *MembershipStore) ListMembers(listID int64) ([]model.Member, error) {
	rows, err := s.db.Query(`
		SELECT m.user_id, u.nickname, u.email, m.permission, m.joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.list_id = ? AND m.active = 1
		ORDER BY m.joined_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Nickname, &m.Email, &m.Permission, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
