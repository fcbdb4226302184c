// Package notifications stores the admin notification feed. Other plugins
// create entries through the Notifier interface; admins read and dismiss
// them through /api/admin/notifications.
package notifications

import "time"

// Notification types.
const (
	TypeContactSubmission = "contact_submission"
	TypeSystem            = "system"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Notification is one entry in the admin feed.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListOptions filters the feed.
type ListOptions struct {
	UnreadOnly bool
	Page       int
	PerPage    int
}

// Page is one page of the feed plus the global unread count.
type Page struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	Unread        int            `json:"unread"`
	Page          int            `json:"page"`
	PerPage       int            `json:"perPage"`
}
