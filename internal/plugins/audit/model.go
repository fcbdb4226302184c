// Package audit records administrative actions. Every successful mutation
// made through the admin API (user, role and permission changes, contact
// triage) is captured as an Entry so operators can see who changed what and
// when.
//
// Recording never modifies the audited data and never fails the request
// that triggered it.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering.

const (
	ActionUserCreated = "user.created"
	ActionUserUpdated = "user.updated"
	ActionUserDeleted = "user.deleted"

	ActionRoleCreated = "role.created"
	ActionRoleUpdated = "role.updated"
	ActionRoleDeleted = "role.deleted"

	ActionPermissionCreated = "permission.created"
	ActionPermissionUpdated = "permission.updated"
	ActionPermissionDeleted = "permission.deleted"

	ActionContactUpdated = "contact.updated"
	ActionContactDeleted = "contact.deleted"
)

// Pagination defaults for the audit feed.
const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Entry is a single recorded action.
type Entry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actorId"`
	ActorEmail string    `json:"actorEmail,omitempty"`
	TargetID   string    `json:"targetId,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Filter narrows the audit feed. Empty fields match everything.
type Filter struct {
	Action   string
	ActorID  string
	TargetID string
}

// ListOptions selects one page of the feed.
type ListOptions struct {
	Filter
	Page    int
	PerPage int
}

// Page is one page of the audit feed, newest first.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"perPage"`
}
