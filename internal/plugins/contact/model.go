// Package contact handles the public contact form and the admin triage of
// submissions. A submission may carry file attachments and a recorded voice
// note; files go to the object store and the document to MongoDB.
package contact

import (
	"time"

	"github.com/keyxmakerx/forgepoint/internal/sanitize"
)

// Status is the triage state of a submission.
type Status string

// Submission states.
const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResponded  Status = "responded"
	StatusArchived   Status = "archived"
	StatusSpam       Status = "spam"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResponded, StatusArchived, StatusSpam:
		return true
	}
	return false
}

const (
	defaultPerPage = 25
	maxPerPage     = 100
	maxNotesLength = 5000
)

// StoredFile describes an uploaded file in the object store.
type StoredFile struct {
	Key         string `json:"key" bson:"key"`
	Name        string `json:"name" bson:"name"`
	ContentType string `json:"contentType" bson:"contentType"`
	Size        int64  `json:"size" bson:"size"`
}

// Submission is a stored contact form entry.
type Submission struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	Company     string       `json:"company,omitempty"`
	Service     string       `json:"service,omitempty"`
	Budget      string       `json:"budget,omitempty"`
	Message     string       `json:"message"`
	Attachments []StoredFile `json:"attachments"`
	VoiceNote   *StoredFile  `json:"voiceNote,omitempty"`
	Status      Status       `json:"status"`
	Notes       string       `json:"notes,omitempty"`
	IPAddress   string       `json:"ipAddress,omitempty"`
	UserAgent   string       `json:"userAgent,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// files returns every stored file of s.
func (s *Submission) files() []StoredFile {
	out := append([]StoredFile(nil), s.Attachments...)
	if s.VoiceNote != nil {
		out = append(out, *s.VoiceNote)
	}
	return out
}

// --- Request DTOs ---

// SubmitRequest is the contact form body, accepted as JSON or multipart.
type SubmitRequest struct {
	Name    string `json:"name" form:"name" validate:"required,max=100"`
	Email   string `json:"email" form:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" form:"phone" validate:"max=30"`
	Company string `json:"company" form:"company" validate:"max=100"`
	Service string `json:"service" form:"service" validate:"max=100"`
	Budget  string `json:"budget" form:"budget" validate:"max=50"`
	Message string `json:"message" form:"message" validate:"required,min=10,max=5000"`
}

// Sanitize strips markup from every field. Run before validation so
// length limits apply to the stored text.
func (r *SubmitRequest) Sanitize() {
	r.Name = sanitize.Line(r.Name)
	r.Email = sanitize.Line(r.Email)
	r.Phone = sanitize.Line(r.Phone)
	r.Company = sanitize.Line(r.Company)
	r.Service = sanitize.Line(r.Service)
	r.Budget = sanitize.Line(r.Budget)
	r.Message = sanitize.Text(r.Message)
}

// UpdateRequest changes the triage state of a submission.
type UpdateRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// --- Service Input DTOs ---

// Upload is a file received with a submission.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// SubmitInput is a sanitized, validated submission plus its files.
type SubmitInput struct {
	SubmitRequest
	Attachments []Upload
	VoiceNote   *Upload
	IPAddress   string
	UserAgent   string
}

// ListOptions filters the triage list.
type ListOptions struct {
	Status  string
	Page    int
	PerPage int
}

// --- Response DTOs ---

// SubmitResponse is returned to the visitor.
type SubmitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// Page is one page of submissions.
type Page struct {
	Submissions []Submission `json:"submissions"`
	Total       int          `json:"total"`
	Page        int          `json:"page"`
	PerPage     int          `json:"perPage"`
}
