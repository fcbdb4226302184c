package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// Recorder persists audit entries. Plugins depend on this narrow interface.
type Recorder interface {
	Log(ctx context.Context, entry *Entry) error
}

// AuditService handles business logic for the audit log.
type AuditService interface {
	Recorder

	// List returns one page of the audit feed.
	List(ctx context.Context, opts ListOptions) (*Page, error)
}

type auditService struct {
	repo Repository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo Repository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an entry. Failures are logged here so callers
// can treat recording as fire-and-forget.
func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}
	if entry.ActorID == "" {
		return apperror.NewBadRequest("actor is required for audit entry")
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("action", entry.Action),
			slog.String("actor_id", entry.ActorID),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}
	return nil
}

// List returns the feed page. Pages are 1-indexed; out-of-range paging
// values are clamped.
func (s *auditService) List(ctx context.Context, opts ListOptions) (*Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = defaultPerPage
	}
	if opts.PerPage > maxPerPage {
		opts.PerPage = maxPerPage
	}

	entries, total, err := s.repo.List(ctx, opts.Filter, (opts.Page-1)*opts.PerPage, opts.PerPage)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing audit entries: %w", err))
	}
	if entries == nil {
		entries = []Entry{}
	}
	return &Page{Entries: entries, Total: total, Page: opts.Page, PerPage: opts.PerPage}, nil
}
