package contact

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/middleware"
)

// Multipart field names of the contact form.
const (
	attachmentsField = "attachments"
	voiceNoteField   = "voiceNote"
)

// formOverhead allows for text fields and multipart framing on top of the
// file payload.
const formOverhead = 1 << 20

// Handler handles contact form and triage requests.
type Handler struct {
	service ContactService
	limits  Limits
}

// NewHandler creates a new contact handler.
func NewHandler(service ContactService, limits Limits) *Handler {
	return &Handler{service: service, limits: limits}
}

// bodyLimit is the largest request Submit will read: every attachment and
// the voice note at full size.
func (h *Handler) bodyLimit() int64 {
	return h.limits.MaxFileSize*int64(h.limits.MaxFiles+1) + formOverhead
}

// Submit accepts a contact form (POST /api/contact) as JSON or multipart.
func (h *Handler) Submit(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.bodyLimit())

	var body SubmitRequest
	if err := c.Bind(&body); err != nil {
		if isTooLarge(err) {
			return apperror.NewPayloadTooLarge("request body too large")
		}
		return apperror.NewBadRequest("invalid request body")
	}
	body.Sanitize()
	if err := c.Validate(&body); err != nil {
		return err
	}

	input := SubmitInput{
		SubmitRequest: body,
		IPAddress:     middleware.ClientIP(c),
		UserAgent:     req.UserAgent(),
	}

	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			if isTooLarge(err) {
				return apperror.NewPayloadTooLarge("request body too large")
			}
			return apperror.NewBadRequest("invalid multipart form")
		}
		defer form.RemoveAll()

		headers := form.File[attachmentsField]
		if len(headers) > h.limits.MaxFiles {
			return apperror.NewBadRequest(fmt.Sprintf("too many attachments; maximum is %d", h.limits.MaxFiles))
		}
		for _, fh := range headers {
			up, err := h.readUpload(fh)
			if err != nil {
				return err
			}
			input.Attachments = append(input.Attachments, up)
		}

		if voice := form.File[voiceNoteField]; len(voice) > 0 {
			up, err := h.readUpload(voice[0])
			if err != nil {
				return err
			}
			input.VoiceNote = &up
		}
	}

	sub, err := h.service.Submit(req.Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, SubmitResponse{Success: true, ID: sub.ID})
}

// readUpload reads one file, refusing anything over the per-file limit.
func (h *Handler) readUpload(fh *multipart.FileHeader) (Upload, error) {
	if fh.Size > h.limits.MaxFileSize {
		return Upload{}, apperror.NewBadRequest(fmt.Sprintf("file too large; maximum size is %d MB", h.limits.MaxFileSize/(1<<20)))
	}
	src, err := fh.Open()
	if err != nil {
		return Upload{}, apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.limits.MaxFileSize+1))
	if err != nil {
		return Upload{}, apperror.NewInternal(err)
	}
	return Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// --- Triage ---

// List returns submissions (GET /api/admin/contacts?status=).
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.service.List(c.Request().Context(), ListOptions{
		Status:  c.QueryParam("status"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get returns one submission (GET /api/admin/contacts/:id).
func (h *Handler) Get(c echo.Context) error {
	sub, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// Update changes status or notes (PATCH /api/admin/contacts/:id).
func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	sub, err := h.service.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// Delete removes a submission (DELETE /api/admin/contacts/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
