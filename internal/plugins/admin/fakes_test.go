package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// In-memory implementations of the identity repositories.

type fakeUsers struct {
	byID   map[string]*auth.User
	nextID int
}

func newFakeUsers(users ...auth.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*auth.User{}}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *auth.User) error {
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NewNotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user not found")
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, strings.ToLower(email))
	return err == nil, nil
}

func (f *fakeUsers) UpdateLastLogin(context.Context, string) error { return nil }

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.byID[id].PasswordHash = hash
	return nil
}

func (f *fakeUsers) List(_ context.Context, offset, limit int) ([]auth.User, int, error) {
	var all []auth.User
	for _, u := range f.byID {
		all = append(all, *u)
	}
	slices.SortFunc(all, func(a, b auth.User) int { return strings.Compare(a.ID, b.ID) })
	end := min(offset+limit, len(all))
	if offset > len(all) {
		offset = len(all)
	}
	return all[offset:end], len(all), nil
}

func (f *fakeUsers) Update(_ context.Context, u *auth.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return apperror.NewNotFound("user not found")
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperror.NewNotFound("user not found")
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) PullRole(_ context.Context, roleID string) error {
	for _, u := range f.byID {
		u.Roles = slices.DeleteFunc(u.Roles, func(r string) bool { return r == roleID })
	}
	return nil
}

type fakeRoles struct {
	byID   map[string]*auth.Role
	nextID int
}

func newFakeRoles(roles ...auth.Role) *fakeRoles {
	f := &fakeRoles{byID: map[string]*auth.Role{}}
	for i := range roles {
		r := roles[i]
		f.byID[r.ID] = &r
	}
	return f
}

func (f *fakeRoles) Create(_ context.Context, r *auth.Role) error {
	for _, existing := range f.byID {
		if existing.Slug == r.Slug {
			return apperror.NewConflict("a role with this slug already exists")
		}
	}
	f.nextID++
	r.ID = fmt.Sprintf("role-%d", f.nextID)
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeRoles) FindByID(_ context.Context, id string) (*auth.Role, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, apperror.NewNotFound("role not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoles) FindBySlug(_ context.Context, slug string) (*auth.Role, error) {
	for _, r := range f.byID {
		if r.Slug == slug {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("role not found")
}

func (f *fakeRoles) FindByIDs(_ context.Context, ids []string) ([]auth.Role, error) {
	var out []auth.Role
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoles) List(context.Context) ([]auth.Role, error) {
	var out []auth.Role
	for _, r := range f.byID {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRoles) Update(_ context.Context, r *auth.Role) error {
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeRoles) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeRoles) UpsertSystem(_ context.Context, r *auth.Role) error {
	r.IsSystem = true
	r.ID = "role-" + r.Slug
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeRoles) PullPermission(_ context.Context, p auth.Permission) error {
	for _, r := range f.byID {
		if !r.IsSystem {
			r.Permissions = slices.DeleteFunc(r.Permissions, func(x auth.Permission) bool { return x == p })
		}
	}
	return nil
}

type fakePerms struct {
	byID map[string]*auth.PermissionRecord
}

func newFakePerms(recs ...auth.PermissionRecord) *fakePerms {
	f := &fakePerms{byID: map[string]*auth.PermissionRecord{}}
	for i := range recs {
		r := recs[i]
		f.byID[r.ID] = &r
	}
	return f
}

func (f *fakePerms) List(context.Context) ([]auth.PermissionRecord, error) {
	var out []auth.PermissionRecord
	for _, r := range f.byID {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakePerms) FindByID(_ context.Context, id string) (*auth.PermissionRecord, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, apperror.NewNotFound("permission not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakePerms) FindBySlug(_ context.Context, slug auth.Permission) (*auth.PermissionRecord, error) {
	for _, r := range f.byID {
		if r.Slug == slug {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("permission not found")
}

func (f *fakePerms) Create(ctx context.Context, r *auth.PermissionRecord) error {
	if _, err := f.FindBySlug(ctx, r.Slug); err == nil {
		return apperror.NewConflict("permission already exists")
	}
	r.ID = "perm-" + string(r.Slug)
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakePerms) Update(_ context.Context, r *auth.PermissionRecord) error {
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakePerms) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakePerms) EnsureExists(ctx context.Context, r auth.PermissionRecord) error {
	if _, err := f.FindBySlug(ctx, r.Slug); err == nil {
		return nil
	}
	return f.Create(ctx, &r)
}
