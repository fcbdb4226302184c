package notifications

import (
	"context"
	"errors"
	"fmt"
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
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu    sync.Mutex
	items map[string]*Notification
	seq   int
	err   error
}

func newMemRepo() *memRepo { return &memRepo{items: map[string]*Notification{}} }

func (r *memRepo) Create(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.seq++
	n.ID = fmt.Sprintf("n%03d", r.seq)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Date(2026, 1, 1, 0, r.seq, 0, 0, time.UTC)
	}
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memRepo) List(_ context.Context, unreadOnly bool, offset, limit int) ([]Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}
	var all []Notification
	for _, n := range r.items {
		if unreadOnly && n.Read {
			continue
		}
		all = append(all, *n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (r *memRepo) CountUnread(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if !it.Read {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return apperror.NewNotFound("notification not found")
	}
	n.Read = true
	return nil
}

func (r *memRepo) MarkAllRead(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, n := range r.items {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperror.NewNotFound("notification not found")
	}
	delete(r.items, id)
	return nil
}

func seed(t *testing.T, svc NotificationService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, svc.Notify(context.Background(), &Notification{
			Type:  TypeContactSubmission,
			Title: fmt.Sprintf("Enquiry %d", i+1),
		}))
	}
}

func TestNotify_DefaultsAndValidation(t *testing.T) {
	repo := newMemRepo()
	svc := NewNotificationService(repo)

	n := &Notification{Title: "  Deploy finished  ", Read: true}
	require.NoError(t, svc.Notify(context.Background(), n))
	assert.Equal(t, TypeSystem, n.Type)
	assert.Equal(t, "Deploy finished", n.Title)
	assert.False(t, n.Read, "new notifications start unread")
	assert.NotEmpty(t, n.ID)

	assert.Error(t, svc.Notify(context.Background(), &Notification{Title: "   "}))
}

func TestList_UnreadFilterAndPaging(t *testing.T) {
	repo := newMemRepo()
	svc := NewNotificationService(repo)
	seed(t, svc, 5)
	require.NoError(t, svc.MarkRead(context.Background(), "n001"))

	page, err := svc.List(context.Background(), ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 4, page.Unread)
	assert.Equal(t, "Enquiry 5", page.Notifications[0].Title, "newest first")

	page, err = svc.List(context.Background(), ListOptions{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, 2, page.Page)

	page, err = svc.List(context.Background(), ListOptions{Page: 9, PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPerPage, page.PerPage)
	assert.NotNil(t, page.Notifications)
	assert.Empty(t, page.Notifications)
}

func TestMarkAllRead(t *testing.T) {
	repo := newMemRepo()
	svc := NewNotificationService(repo)
	seed(t, svc, 3)

	n, err := svc.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDelete_NotFoundPassesThrough(t *testing.T) {
	svc := NewNotificationService(newMemRepo())
	err := svc.Delete(context.Background(), "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_RepositoryErrorIsInternal(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("connection reset")
	svc := NewNotificationService(repo)

	_, err := svc.List(context.Background(), ListOptions{})
	assert.Equal(t, http.StatusInternalServerError, apperror.SafeCode(err))
}

func TestHandler_Endpoints(t *testing.T) {
	repo := newMemRepo()
	svc := NewNotificationService(repo)
	seed(t, svc, 2)
	h := NewHandler(svc)

	e := echo.New()
	e.GET("/notifications", h.List)
	e.PATCH("/notifications/:id/read", h.MarkRead)
	e.POST("/notifications/read-all", h.MarkAllRead)
	e.DELETE("/notifications/:id", h.Delete)

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := do(http.MethodGet, "/notifications?unread=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unread":2`)

	assert.Equal(t, http.StatusNoContent, do(http.MethodPatch, "/notifications/n001/read").Code)

	rec = do(http.MethodPost, "/notifications/read-all")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/notifications/n002").Code)
	assert.Len(t, repo.items, 1)
}
