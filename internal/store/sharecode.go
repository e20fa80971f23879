package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comprai/comprai/internal/model"
)

// Share code validation failures. Handlers map these to 4xx responses.
var (
	ErrCodeNotFound = errors.New("share code not found")
	ErrCodeExpired  = errors.New("share code expired")
	ErrCodeUsed     = errors.New("share code already used")
)

// Codes avoid 0/O and 1/I to keep them readable when shared aloud.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const codeLength = 6

type ShareCodeStore struct {
	db *sql.DB
}

func NewShareCodeStore(db *sql.DB) *ShareCodeStore {
	return &ShareCodeStore{db: db}
}

func scanShareCode(scanner interface{ Scan(...any) error }) (*model.ShareCode, error) {
	var sc model.ShareCode
	var singleUse, used int
	var usedBy sql.NullInt64
	var usedAt, expiresAt sql.NullTime

	err := scanner.Scan(
		&sc.ID, &sc.Code, &sc.ListID, &sc.Permission, &singleUse, &used,
		&usedBy, &usedAt, &expiresAt, &sc.CreatedBy, &sc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sc.SingleUse = singleUse != 0
	sc.Used = used != 0
	if usedBy.Valid {
		sc.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		sc.UsedAt = &usedAt.Time
	}
	if expiresAt.Valid {
		sc.ExpiresAt = &expiresAt.Time
	}
	return &sc, nil
}

const shareCodeCols = `id, code, list_id, permission, single_use, used, used_by, used_at, expires_at, created_by, created_at`

// GenerateCode returns a random 6-character uppercase code.
func GenerateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// Create generates a new share code for a list. expiresAt nil means the code
// never expires.
func (s *ShareCodeStore) Create(listID int64, permission string, singleUse bool, expiresAt *time.Time, createdBy int64) (*model.ShareCode, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	var single int
	if singleUse {
		single = 1
	}
	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO share_codes (code, list_id, permission, single_use, expires_at, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		code, listID, permission, single, expires, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert share code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+shareCodeCols+` FROM share_codes WHERE id = ?`, id)
	return scanShareCode(row)
}

// Validate looks up a code and checks it is redeemable. Input is upper-cased
// before lookup, so codes are case-insensitive. Returns ErrCodeNotFound,
// ErrCodeExpired, or ErrCodeUsed on rejection.
func (s *ShareCodeStore) Validate(code string) (*model.ShareCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	row := s.db.QueryRow(`SELECT `+shareCodeCols+` FROM share_codes WHERE code = ?`, code)
	sc, err := scanShareCode(row)
	if err == sql.ErrNoRows {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share code: %w", err)
	}

	if sc.ExpiresAt != nil && sc.ExpiresAt.Before(time.Now().UTC()) {
		return nil, ErrCodeExpired
	}
	if sc.SingleUse && sc.Used {
		return nil, ErrCodeUsed
	}
	return sc, nil
}

// MarkUsed records the redeeming user and timestamp on a single-use code,
// making it non-redeemable from then on.
func (s *ShareCodeStore) MarkUsed(id, userID int64) error {
	_, err := s.db.Exec(
		`UPDATE share_codes SET used = 1, used_by = ?, used_at = datetime('now') WHERE id = ?`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("mark share code used: %w", err)
	}
	return nil
}

// ListByList returns the codes created for a list, newest first.
func (s *ShareCodeStore) ListByList(listID int64) ([]model.ShareCode, error) {
	rows, err := s.db.Query(`SELECT `+shareCodeCols+` FROM share_codes WHERE list_id = ? ORDER BY created_at DESC`, listID)
	if err != nil {
		return nil, fmt.Errorf("list share codes: %w", err)
	}
	defer rows.Close()

	var codes []model.ShareCode
	for rows.Next() {
		sc, err := scanShareCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share code: %w", err)
		}
		codes = append(codes, *sc)
	}
	return codes, rows.Err()
}
