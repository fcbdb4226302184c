package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/auth"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu      sync.Mutex
	entries []Entry
	failLog error
}

func (r *memRepo) Log(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLog != nil {
		return r.failLog
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Date(2026, 3, 1, 9, 0, len(r.entries), 0, time.UTC)
	}
	e.ID = string(rune('a' + len(r.entries)))
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memRepo) List(_ context.Context, f Filter, offset, limit int) ([]Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Entry
	for _, e := range r.entries {
		if (f.Action == "" || e.Action == f.Action) &&
			(f.ActorID == "" || e.ActorID == f.ActorID) &&
			(f.TargetID == "" || e.TargetID == f.TargetID) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

func (r *memRepo) snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

func TestLog_RequiresActionAndActor(t *testing.T) {
	svc := NewAuditService(&memRepo{})
	ctx := context.Background()

	var appErr *apperror.AppError
	err := svc.Log(ctx, &Entry{ActorID: "u1"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	err = svc.Log(ctx, &Entry{Action: ActionUserCreated})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	e := &Entry{Action: ActionUserCreated, ActorID: "u1"}
	require.NoError(t, svc.Log(ctx, e))
	assert.NotEmpty(t, e.ID)
}

func TestLog_RepositoryFailureIsInternal(t *testing.T) {
	svc := NewAuditService(&memRepo{failLog: errors.New("write concern timeout")})

	err := svc.Log(context.Background(), &Entry{Action: ActionRoleDeleted, ActorID: "u1"})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Code)
}

func TestList_FiltersAndPages(t *testing.T) {
	repo := &memRepo{}
	svc := NewAuditService(repo)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Log(ctx, &Entry{Action: ActionContactUpdated, ActorID: "u1", TargetID: "c1"}))
	}
	require.NoError(t, svc.Log(ctx, &Entry{Action: ActionUserDeleted, ActorID: "u2", TargetID: "u9"}))

	page, err := svc.List(ctx, ListOptions{Filter: Filter{ActorID: "u1"}, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, 1, page.Page)
	assert.True(t, page.Entries[0].CreatedAt.After(page.Entries[1].CreatedAt), "newest first")

	page, err = svc.List(ctx, ListOptions{Filter: Filter{Action: ActionUserDeleted}})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "u9", page.Entries[0].TargetID)
	assert.Equal(t, defaultPerPage, page.PerPage)

	page, err = svc.List(ctx, ListOptions{Page: 9, PerPage: 10_000})
	require.NoError(t, err)
	assert.Equal(t, maxPerPage, page.PerPage)
	assert.NotNil(t, page.Entries)
	assert.Empty(t, page.Entries)
}

// --- Track middleware ---

// stubAuth authenticates every token as the same administrator.
type stubAuth struct {
	auth.AuthService
}

func (stubAuth) Authenticate(context.Context, string) (*auth.User, error) {
	return &auth.User{ID: "admin-1", Email: "ops@forgepoint.example", IsActive: true}, nil
}

func newTrackedEcho(rec Recorder, status int, handlerErr error) *echo.Echo {
	e := echo.New()
	e.DELETE("/things/:id", func(c echo.Context) error {
		if handlerErr != nil {
			return handlerErr
		}
		return c.NoContent(status)
	}, auth.RequireAuth(stubAuth{}), Track(rec, ActionContactDeleted))
	e.POST("/open", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, Track(rec, ActionUserCreated))
	return e
}

func call(e *echo.Echo, method, path string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authed {
		req.Header.Set(echo.HeaderAuthorization, "Bearer anything")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTrack_RecordsSuccessfulMutation(t *testing.T) {
	repo := &memRepo{}
	e := newTrackedEcho(NewAuditService(repo), http.StatusNoContent, nil)

	rec := call(e, http.MethodDelete, "/things/65f0c0ffee", true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	entries := repo.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, ActionContactDeleted, entries[0].Action)
	assert.Equal(t, "admin-1", entries[0].ActorID)
	assert.Equal(t, "ops@forgepoint.example", entries[0].ActorEmail)
	assert.Equal(t, "65f0c0ffee", entries[0].TargetID)
	assert.Equal(t, "192.0.2.1", entries[0].IPAddress)
}

func TestTrack_SkipsFailuresAndAnonymousRequests(t *testing.T) {
	repo := &memRepo{}
	e := newTrackedEcho(NewAuditService(repo), http.StatusNoContent, apperror.NewNotFound("gone"))
	call(e, http.MethodDelete, "/things/x", true)
	assert.Empty(t, repo.snapshot(), "failed handler")

	e = newTrackedEcho(NewAuditService(repo), http.StatusConflict, nil)
	call(e, http.MethodDelete, "/things/x", true)
	assert.Empty(t, repo.snapshot(), "4xx written without error")

	call(e, http.MethodPost, "/open", false)
	assert.Empty(t, repo.snapshot(), "no identity")
}

func TestTrack_RecorderFailureDoesNotFailRequest(t *testing.T) {
	e := newTrackedEcho(NewAuditService(&memRepo{failLog: errors.New("down")}), http.StatusNoContent, nil)
	rec := call(e, http.MethodDelete, "/things/x", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTrack_NilRecorderPassesThrough(t *testing.T) {
	e := newTrackedEcho(nil, http.StatusNoContent, nil)
	rec := call(e, http.MethodDelete, "/things/x", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_List(t *testing.T) {
	repo := &memRepo{}
	svc := NewAuditService(repo)
	require.NoError(t, svc.Log(context.Background(), &Entry{Action: ActionRoleCreated, ActorID: "u1"}))
	require.NoError(t, svc.Log(context.Background(), &Entry{Action: ActionRoleDeleted, ActorID: "u1", TargetID: "r1"}))

	e := echo.New()
	e.GET("/audit", NewHandler(svc).List)
	rec := call(e, http.MethodGet, "/audit?action=role.deleted&limit=5", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.PerPage)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "r1", page.Entries[0].TargetID)
}
