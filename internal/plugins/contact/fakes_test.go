package contact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/plugins/notifications"
	"github.com/keyxmakerx/forgepoint/internal/plugins/smtp"
)

// --- Repository ---

type fakeRepo struct {
	mu        sync.Mutex
	items     map[string]*Submission
	seq       int
	createErr error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{items: map[string]*Submission{}} }

func (r *fakeRepo) Create(_ context.Context, s *Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	s.ID = fmt.Sprintf("%024x", r.seq)
	s.CreatedAt = time.Date(2026, 2, 1, 0, r.seq, 0, 0, time.UTC)
	s.UpdatedAt = s.CreatedAt
	if s.Attachments == nil {
		s.Attachments = []StoredFile{}
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, apperror.NewNotFound("submission not found")
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context, status Status, offset, limit int) ([]Submission, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []Submission
	for _, s := range r.items {
		if status == "" || s.Status == status {
			all = append(all, *s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (r *fakeRepo) UpdateTriage(_ context.Context, id string, status *Status, notes *string) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, apperror.NewNotFound("submission not found")
	}
	if status != nil {
		s.Status = *status
	}
	if notes != nil {
		s.Notes = *notes
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperror.NewNotFound("submission not found")
	}
	delete(r.items, id)
	return nil
}

// --- Object store ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  int // fail the n-th Put (1-based); 0 never fails
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.failOn > 0 && s.puts == s.failOn {
		return errors.New("bucket unavailable")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.objects[key] = buf.Bytes()
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// --- Notifier ---

type fakeNotifier struct {
	mu    sync.Mutex
	items []notifications.Notification
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, item *notifications.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.items = append(n.items, *item)
	return nil
}

// --- Mailer ---

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	recipients []string
	sent       []smtp.Mail
	err        error
}

func (m *fakeMailer) SendMail(_ context.Context, mail smtp.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *fakeMailer) IsConfigured() bool         { return m.configured }
func (m *fakeMailer) NotifyRecipients() []string { return m.recipients }

func (m *fakeMailer) messages() []smtp.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]smtp.Mail(nil), m.sent...)
}

// --- Sample file contents ---

var (
	pdfBytes  = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}
	webmBytes = []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81}
)
