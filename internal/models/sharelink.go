// internal/models/sharelink.go
package models

import "time"

// AccessAction is the kind of access recorded against a share link.
type AccessAction string

const (
	AccessViewed AccessAction = "viewed"
	AccessEdited AccessAction = "edited"
)

// ShareLink maps a generated link id to a shared copy of a story bible. The
// link is a capability token: anyone holding the link id can read and edit
// the copy without owner authentication, until the link is revoked or
// expires.
type ShareLink struct {
	LinkID    string     `json:"link_id"`
	ShareID   string     `json:"share_id"`
	OwnerID   string     `json:"owner_id"`
	OwnerName string     `json:"owner_name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Expired reports whether the link has a past expiry.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// AccessLogEntry records a single view or edit through a share link.
type AccessLogEntry struct {
	LinkID    string       `json:"link_id"`
	Action    AccessAction `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
}

// AccessAnalytics is derived from the raw log on read; counts are not
// maintained incrementally.
type AccessAnalytics struct {
	ViewCount    int       `json:"view_count"`
	EditCount    int       `json:"edit_count"`
	TotalAccess  int       `json:"total_access"`
	LastAccessed time.Time `json:"last_accessed"`
}
