package model

import "time"

type ShareCode struct {
	ID         int64      `json:"id"`
	Code       string     `json:"code"`
	ListID     int64      `json:"list_id"`
	Permission string     `json:"permission"`
	SingleUse  bool       `json:"single_use"`
	Used       bool       `json:"used"`
	UsedBy     *int64     `json:"used_by,omitempty"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedBy  int64      `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}
