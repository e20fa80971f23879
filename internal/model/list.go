package model

import "time"

type List struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListSummary is the overview row shown on the lists screen: the list plus
// item counts and the caller's permission on it.
type ListSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	OwnerID     int64     `json:"owner_id"`
	Permission  string    `json:"permission"`
	ItemCount   int       `json:"item_count"`
	CheckedCount int      `json:"checked_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}
