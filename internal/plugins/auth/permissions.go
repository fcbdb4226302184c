package auth

import (
	"slices"
)

// Permission is a slug from the closed permission catalog. Only the
// constants below are valid; anything else is rejected on input.
type Permission string

const (
	PermUsersRead   Permission = "users.read"
	PermUsersCreate Permission = "users.create"
	PermUsersUpdate Permission = "users.update"
	PermUsersDelete Permission = "users.delete"

	PermRolesRead   Permission = "roles.read"
	PermRolesCreate Permission = "roles.create"
	PermRolesUpdate Permission = "roles.update"
	PermRolesDelete Permission = "roles.delete"

	PermPermissionsRead   Permission = "permissions.read"
	PermPermissionsManage Permission = "permissions.manage"

	PermContactsRead   Permission = "contacts.read"
	PermContactsUpdate Permission = "contacts.update"
	PermContactsDelete Permission = "contacts.delete"

	PermNotificationsRead   Permission = "notifications.read"
	PermNotificationsManage Permission = "notifications.manage"

	PermAuditRead Permission = "audit.read"
)

// PermissionInfo describes a catalog entry.
type PermissionInfo struct {
	Slug     Permission
	Name     string
	Module   string
	ReadOnly bool
}

// catalog is the complete set of permissions compiled into the binary.
var catalog = []PermissionInfo{
	{PermUsersRead, "View users", "users", true},
	{PermUsersCreate, "Create users", "users", false},
	{PermUsersUpdate, "Edit users", "users", false},
	{PermUsersDelete, "Delete users", "users", false},
	{PermRolesRead, "View roles", "roles", true},
	{PermRolesCreate, "Create roles", "roles", false},
	{PermRolesUpdate, "Edit roles", "roles", false},
	{PermRolesDelete, "Delete roles", "roles", false},
	{PermPermissionsRead, "View permissions", "permissions", true},
	{PermPermissionsManage, "Manage permissions", "permissions", false},
	{PermContactsRead, "View contact submissions", "contacts", true},
	{PermContactsUpdate, "Triage contact submissions", "contacts", false},
	{PermContactsDelete, "Delete contact submissions", "contacts", false},
	{PermNotificationsRead, "View notifications", "notifications", true},
	{PermNotificationsManage, "Manage notifications", "notifications", false},
	{PermAuditRead, "View audit log", "audit", true},
}

var catalogIndex = func() map[Permission]PermissionInfo {
	m := make(map[Permission]PermissionInfo, len(catalog))
	for _, p := range catalog {
		m[p.Slug] = p
	}
	return m
}()

// Catalog returns a copy of every known permission.
func Catalog() []PermissionInfo {
	return slices.Clone(catalog)
}

// LookupPermission returns the catalog entry for slug.
func LookupPermission(slug string) (PermissionInfo, bool) {
	p, ok := catalogIndex[Permission(slug)]
	return p, ok
}

// ParsePermissions converts raw slugs to catalog permissions. It returns the
// offending slugs when any are unknown.
func ParsePermissions(raw []string) ([]Permission, []string) {
	out := make([]Permission, 0, len(raw))
	var unknown []string
	for _, s := range raw {
		p, ok := LookupPermission(s)
		if !ok {
			unknown = append(unknown, s)
			continue
		}
		out = append(out, p.Slug)
	}
	return dedupe(out), unknown
}

// allPermissions lists every catalog slug, for the super-admin role.
func allPermissions() []Permission {
	out := make([]Permission, len(catalog))
	for i, p := range catalog {
		out[i] = p.Slug
	}
	return out
}

// readPermissions lists the read-only catalog slugs, for the viewer role.
func readPermissions() []Permission {
	var out []Permission
	for _, p := range catalog {
		if p.ReadOnly {
			out = append(out, p.Slug)
		}
	}
	return out
}

// unionPermissions flattens the permissions of roles and removes duplicates.
func unionPermissions(roles []Role) []Permission {
	var all []Permission
	for _, r := range roles {
		all = append(all, r.Permissions...)
	}
	return dedupe(all)
}

// hasAll reports whether granted contains every permission in required.
func hasAll(granted, required []Permission) bool {
	for _, r := range required {
		if !slices.Contains(granted, r) {
			return false
		}
	}
	return true
}

func dedupe(perms []Permission) []Permission {
	seen := make(map[Permission]bool, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}
