package contact

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/notifications"
	"github.com/keyxmakerx/forgepoint/internal/plugins/smtp"
	"github.com/keyxmakerx/forgepoint/internal/sanitize"
	"github.com/keyxmakerx/forgepoint/internal/storage"
)

// mailTimeout bounds one background notification email, including the
// wait for a send token.
const mailTimeout = time.Minute

// ContactService handles submissions and their triage.
type ContactService interface {
	Submit(ctx context.Context, input SubmitInput) (*Submission, error)

	List(ctx context.Context, opts ListOptions) (*Page, error)
	Get(ctx context.Context, id string) (*Submission, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Submission, error)
	Delete(ctx context.Context, id string) error

	// Drain waits for background notification emails to finish.
	Drain(ctx context.Context) error
}

// Limits bounds the files accepted with one submission.
type Limits struct {
	MaxFileSize int64
	MaxFiles    int
}

type contactService struct {
	repo     Repository
	store    storage.ObjectStore
	notifier notifications.Notifier
	mailer   smtp.MailService
	limits   Limits
	baseURL  string

	wg sync.WaitGroup
}

// NewContactService creates a new contact service. mailer may be nil when
// email is disabled.
func NewContactService(repo Repository, store storage.ObjectStore, notifier notifications.Notifier,
	mailer smtp.MailService, limits Limits, baseURL string) ContactService {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 5
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = 10 << 20
	}
	return &contactService{
		repo:     repo,
		store:    store,
		notifier: notifier,
		mailer:   mailer,
		limits:   limits,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// --- Submission ---

// Submit stores files and the submission, posts an admin notification, and
// queues the notification email. Notification failures are logged and do
// not fail the submission.
func (s *contactService) Submit(ctx context.Context, input SubmitInput) (*Submission, error) {
	if err := s.checkFiles(input); err != nil {
		return nil, err
	}

	sub := &Submission{
		Name:      input.Name,
		Email:     strings.ToLower(input.Email),
		Phone:     input.Phone,
		Company:   input.Company,
		Service:   input.Service,
		Budget:    input.Budget,
		Message:   input.Message,
		Status:    StatusNew,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	}

	for _, up := range input.Attachments {
		f, err := s.storeFile(ctx, up, up.ContentType)
		if err != nil {
			s.removeFiles(sub.files())
			return nil, err
		}
		sub.Attachments = append(sub.Attachments, f)
	}
	if input.VoiceNote != nil {
		f, err := s.storeFile(ctx, *input.VoiceNote, normalizeVoiceType(input.VoiceNote.ContentType))
		if err != nil {
			s.removeFiles(sub.files())
			return nil, err
		}
		sub.VoiceNote = &f
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		s.removeFiles(sub.files())
		return nil, apperror.NewInternal(fmt.Errorf("saving submission: %w", err))
	}

	slog.Info("contact submission received",
		slog.String("id", sub.ID),
		slog.Int("attachments", len(sub.Attachments)),
		slog.Bool("voice_note", sub.VoiceNote != nil),
	)

	s.notify(ctx, sub)
	s.sendMail(sub)
	return sub, nil
}

// checkFiles validates counts, sizes and types before anything is stored.
func (s *contactService) checkFiles(input SubmitInput) error {
	if len(input.Attachments) > s.limits.MaxFiles {
		return apperror.NewBadRequest(fmt.Sprintf("too many attachments; maximum is %d", s.limits.MaxFiles))
	}
	maxMB := s.limits.MaxFileSize / (1 << 20)

	for _, up := range input.Attachments {
		if len(up.Data) == 0 {
			return apperror.NewBadRequest("attachment " + sanitize.Filename(up.Name) + " is empty")
		}
		if int64(len(up.Data)) > s.limits.MaxFileSize {
			return apperror.NewBadRequest(fmt.Sprintf("attachment too large; maximum size is %d MB", maxMB))
		}
		if !validAttachment(up.Name, up.ContentType, up.Data) {
			return apperror.NewBadRequest("unsupported attachment type: " + sanitize.Filename(up.Name))
		}
	}

	if v := input.VoiceNote; v != nil {
		if len(v.Data) == 0 {
			return apperror.NewBadRequest("voice note is empty")
		}
		if int64(len(v.Data)) > s.limits.MaxFileSize {
			return apperror.NewBadRequest(fmt.Sprintf("voice note too large; maximum size is %d MB", maxMB))
		}
		mt := normalizeVoiceType(v.ContentType)
		if mt == "" || !validateMagicBytes(v.Data, mt) {
			return apperror.NewBadRequest("unsupported voice note format")
		}
	}
	return nil
}

// storeFile writes one upload under contact/<uuid>/<name>.
func (s *contactService) storeFile(ctx context.Context, up Upload, contentType string) (StoredFile, error) {
	name := sanitize.Filename(up.Name)
	if ext, ok := voiceTypes[contentType]; ok && (name == "file" || name == "blob") {
		name = "voice-note" + ext
	}
	key := "contact/" + uuid.NewString() + "/" + name

	if err := s.store.Put(ctx, key, bytes.NewReader(up.Data), int64(len(up.Data)), contentType); err != nil {
		return StoredFile{}, apperror.NewInternal(fmt.Errorf("storing %s: %w", key, err))
	}
	return StoredFile{Key: key, Name: name, ContentType: contentType, Size: int64(len(up.Data))}, nil
}

// removeFiles deletes stored files best-effort.
func (s *contactService) removeFiles(files []StoredFile) {
	if len(files) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, f := range files {
		if err := s.store.Delete(ctx, f.Key); err != nil {
			slog.Warn("failed to delete contact file", slog.String("key", f.Key), slog.Any("error", err))
		}
	}
}

func (s *contactService) notify(ctx context.Context, sub *Submission) {
	if s.notifier == nil {
		return
	}
	title := "New enquiry from " + sub.Name
	if sub.Company != "" {
		title += " (" + sub.Company + ")"
	}
	err := s.notifier.Notify(ctx, &notifications.Notification{
		Type:  notifications.TypeContactSubmission,
		Title: title,
		Body:  excerpt(sub.Message, 200),
		Link:  "/admin/contacts/" + sub.ID,
	})
	if err != nil {
		slog.Warn("failed to create contact notification", slog.String("id", sub.ID), slog.Any("error", err))
	}
}

// sendMail emails the notification recipients in the background.
func (s *contactService) sendMail(sub *Submission) {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return
	}
	to := s.mailer.NotifyRecipients()
	if len(to) == 0 {
		return
	}

	m := smtp.Mail{
		To:      to,
		Subject: "New contact submission from " + sub.Name,
		Body:    s.mailBody(sub),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.mailer.SendMail(ctx, m); err != nil {
			slog.Error("failed to send contact notification email",
				slog.String("id", sub.ID),
				slog.Any("error", err),
			)
		}
	}()
}

func (s *contactService) mailBody(sub *Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new contact form submission was received.\n\n")
	fmt.Fprintf(&b, "Name:    %s\n", sub.Name)
	fmt.Fprintf(&b, "Email:   %s\n", sub.Email)
	for _, f := range []struct{ label, value string }{
		{"Phone:   ", sub.Phone},
		{"Company: ", sub.Company},
		{"Service: ", sub.Service},
		{"Budget:  ", sub.Budget},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "%s%s\n", f.label, f.value)
		}
	}
	fmt.Fprintf(&b, "\n%s\n", sub.Message)

	if len(sub.Attachments) > 0 || sub.VoiceNote != nil {
		b.WriteString("\nFiles:\n")
		for _, f := range sub.files() {
			fmt.Fprintf(&b, "  - %s (%s, %d bytes)\n", f.Name, f.ContentType, f.Size)
		}
	}
	fmt.Fprintf(&b, "\nView: %s/admin/contacts/%s\n", s.baseURL, sub.ID)
	return b.String()
}

func (s *contactService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Triage ---

func (s *contactService) List(ctx context.Context, opts ListOptions) (*Page, error) {
	status := Status(opts.Status)
	if status != "" && !status.Valid() {
		return nil, apperror.NewBadRequest("unknown status: " + opts.Status)
	}
	page := max(opts.Page, 1)
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	subs, total, err := s.repo.List(ctx, status, (page-1)*perPage, perPage)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if subs == nil {
		subs = []Submission{}
	}
	return &Page{Submissions: subs, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *contactService) Get(ctx context.Context, id string) (*Submission, error) {
	sub, err := s.repo.FindByID(ctx, id)
	return sub, wrap(err)
}

// Update changes status and/or notes.
func (s *contactService) Update(ctx context.Context, id string, req UpdateRequest) (*Submission, error) {
	if req.Status == nil && req.Notes == nil {
		return nil, apperror.NewBadRequest("nothing to update")
	}

	var status *Status
	if req.Status != nil {
		st := Status(strings.TrimSpace(*req.Status))
		if !st.Valid() {
			return nil, apperror.NewValidation("validation failed", map[string]string{
				"status": "must be one of new, in_progress, responded, archived, spam",
			})
		}
		status = &st
	}

	var notes *string
	if req.Notes != nil {
		n := sanitize.Text(*req.Notes)
		if len(n) > maxNotesLength {
			return nil, apperror.NewValidation("validation failed", map[string]string{
				"notes": fmt.Sprintf("must be at most %d characters", maxNotesLength),
			})
		}
		notes = &n
	}

	sub, err := s.repo.UpdateTriage(ctx, id, status, notes)
	if err != nil {
		return nil, wrap(err)
	}
	return sub, nil
}

// Delete removes the submission, then its files best-effort.
func (s *contactService) Delete(ctx context.Context, id string) error {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return wrap(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrap(err)
	}
	s.removeFiles(sub.files())

	slog.Info("contact submission deleted", slog.String("id", id))
	return nil
}

// --- Helpers ---

func excerpt(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
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
