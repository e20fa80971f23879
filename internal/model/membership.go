package model

import "time"

// Permission levels granted by a share code and recorded on memberships.
const (
	PermissionEdit     = "edit"
	PermissionReadonly = "readonly"
)

type Membership struct {
	ID         int64      `json:"id"`
	ListID     int64      `json:"list_id"`
	UserID     int64      `json:"user_id"`
	Permission string     `json:"permission"`
	Active     bool       `json:"active"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Member is a membership joined with the user's profile for display.
type Member struct {
	UserID     int64     `json:"user_id"`
	Nickname   string    `json:"nickname"`
	Email      string    `json:"email"`
	Permission string    `json:"permission"`
	JoinedAt   time.Time `json:"joined_at"`
}
