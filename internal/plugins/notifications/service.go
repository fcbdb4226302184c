package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// Notifier is the cross-plugin contract for posting to the admin feed.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// NotificationService manages the admin feed.
type NotificationService interface {
	Notifier
	List(ctx context.Context, opts ListOptions) (*Page, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

type notificationService struct {
	repo Repository
}

// NewNotificationService creates a new notification service.
func NewNotificationService(repo Repository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify stores n as unread.
func (s *notificationService) Notify(ctx context.Context, n *Notification) error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return fmt.Errorf("notification title is required")
	}
	if n.Type == "" {
		n.Type = TypeSystem
	}
	n.Read = false
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, opts ListOptions) (*Page, error) {
	page := max(opts.Page, 1)
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	items, total, err := s.repo.List(ctx, opts.UnreadOnly, (page-1)*perPage, perPage)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if items == nil {
		items = []Notification{}
	}
	return &Page{Notifications: items, Total: total, Unread: unread, Page: page, PerPage: perPage}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	return wrap(s.repo.MarkRead(ctx, id))
}

func (s *notificationService) MarkAllRead(ctx context.Context) (int, error) {
	n, err := s.repo.MarkAllRead(ctx)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, id string) error {
	return wrap(s.repo.Delete(ctx, id))
}

// wrap passes AppErrors through and hides everything else.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if apperror.SafeCode(err) != http.StatusInternalServerError {
		return err
	}
	return apperror.NewInternal(err)
}
