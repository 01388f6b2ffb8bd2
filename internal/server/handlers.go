package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"adaptstudio/internal/core"
	"adaptstudio/internal/generation"
	"adaptstudio/internal/intake"
	"adaptstudio/internal/presentation"
	"adaptstudio/internal/preview"
	"adaptstudio/internal/slot"
	"adaptstudio/internal/studio"
)

// Handler holds the HTTP handlers
type Handler struct {
	previews    *preview.Store
	uploadLimit int64
	now         func() time.Time
}

// NewHandler creates a new handler serving previews from previews. Upload request
// bodies larger than uploadLimit are reported on the target slot.
func NewHandler(previews *preview.Store, uploadLimit int64) *Handler {
	return &Handler{
		previews:    previews,
		uploadLimit: uploadLimit,
		now:         time.Now,
	}
}

type dragRequest struct {
	Active bool `json:"active"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type slotResponse struct {
	Slot  slot.Snapshot          `json:"slot"`
	Error map[string]interface{} `json:"error,omitempty"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Studio handles GET /api/studio
func (h *Handler) Studio(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, st.Snapshot())
}

// Upload handles POST /api/slots/:role with a multipart "file" field.
// A rejected file answers with the slot snapshot carrying the message.
func (h *Handler) Upload(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	role, err := slotRole(c)
	if err != nil {
		return handleError(c, err)
	}

	req := c.Request()
	if req.ContentLength > h.uploadLimit {
		return h.rejectUpload(c, st, role, req.ContentLength)
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.uploadLimit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return h.rejectUpload(c, st, role, tooLarge.Limit)
		}
		return handleError(c, core.NewInvalidRequestError("file is required", err))
	}
	raw, err := intake.FromMultipart(fh)
	if err != nil {
		return handleError(c, err)
	}

	snap, err := st.Upload(c.Request().Context(), role, raw)
	if err != nil {
		if errors.Is(err, slot.ErrSuperseded) {
			return handleError(c, core.NewConflictError("upload replaced by a newer one"))
		}
		var studioErr *core.StudioError
		if errors.As(err, &studioErr) {
			slog.Debug("upload rejected", "slot", role, "error", err,
				"request_id", core.GetRequestID(c.Request().Context()))
			body := slotResponse{Slot: snap, Error: errorBody(studioErr)}
			return c.JSON(studioErr.HTTPStatusCode(), body)
		}
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, slotResponse{Slot: snap})
}

// rejectUpload answers an upload whose body exceeds the server limit the same way
// intake answers an oversized file.
func (h *Handler) rejectUpload(c echo.Context, st *studio.Studio, role core.SlotRole, size int64) error {
	rejection := core.NewValidationError(core.MessageFileTooLarge)
	snap, err := st.RejectUpload(role, size, rejection)
	if err != nil {
		return handleError(c, err)
	}
	slog.Debug("upload body over limit", "slot", role, "bytes", size,
		"request_id", core.GetRequestID(c.Request().Context()))
	return c.JSON(rejection.HTTPStatusCode(), slotResponse{Slot: snap, Error: errorBody(rejection)})
}

// ClearSlot handles DELETE /api/slots/:role
func (h *Handler) ClearSlot(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	role, err := slotRole(c)
	if err != nil {
		return handleError(c, err)
	}
	snap, err := st.Clear(role)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, slotResponse{Slot: snap})
}

// Drag handles POST /api/slots/:role/drag
func (h *Handler) Drag(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	role, err := slotRole(c)
	if err != nil {
		return handleError(c, err)
	}
	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	snap, err := st.SetDragging(role, req.Active)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, slotResponse{Slot: snap})
}

// SetPrompt handles PUT /api/prompt
func (h *Handler) SetPrompt(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	var req promptRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	st.SetPrompt(req.Prompt)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"prompt":       st.Prompt(),
		"can_generate": st.CanGenerate(),
	})
}

// Generate handles POST /api/generate. It blocks until the attempt resolves; a failed
// generation is still a 200 whose snapshot holds the Error state.
func (h *Handler) Generate(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	// The attempt outlives a dropped connection; the studio polls for the result.
	ctx := context.WithoutCancel(c.Request().Context())
	if _, err := st.Generate(ctx); err != nil {
		switch {
		case errors.Is(err, generation.ErrNotReady),
			errors.Is(err, generation.ErrInFlight),
			errors.Is(err, generation.ErrSuperseded):
			return handleError(c, core.NewConflictError(err.Error()))
		default:
			return handleError(c, err)
		}
	}
	return c.JSON(http.StatusOK, st.Snapshot())
}

// Download handles GET /api/result/download
func (h *Handler) Download(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	img, err := presentation.Download(st.State())
	if err != nil {
		return handleError(c, err)
	}

	filename := presentation.DownloadFilename(h.now())
	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	header.Set("ETag", preview.ETag(img.Data))
	header.Set(echo.HeaderContentLength, strconv.Itoa(len(img.Data)))
	return c.Blob(http.StatusOK, img.MIMEType, img.Data)
}

// View handles GET /api/result/view: a standalone page showing only the image.
func (h *Handler) View(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	var buf bytes.Buffer
	if err := presentation.ViewerPage(&buf, st.State()); err != nil {
		return handleError(c, err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Preview handles GET /previews/:id
func (h *Handler) Preview(c echo.Context) error {
	st, err := studioFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	ref := preview.DefaultPathPrefix + c.Param("id")
	if !st.HasPreview(ref) {
		return handleError(c, core.NewNotFoundError("preview not found"))
	}
	entry, ok := h.previews.Get(ref)
	if !ok {
		return handleError(c, core.NewNotFoundError("preview not found"))
	}

	header := c.Response().Header()
	header.Set("ETag", entry.ETag)
	header.Set("Cache-Control", "private, max-age=3600")
	if c.Request().Header.Get("If-None-Match") == entry.ETag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, entry.MIMEType, entry.Data)
}

func slotRole(c echo.Context) (core.SlotRole, error) {
	role, ok := core.ParseSlotRole(c.Param("role"))
	if !ok {
		return "", core.NewNotFoundError("unknown slot: " + c.Param("role"))
	}
	return role, nil
}

func errorBody(e *core.StudioError) map[string]interface{} {
	body, _ := e.ToJSON()["error"].(map[string]interface{})
	return body
}

// handleError converts studio errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var studioErr *core.StudioError
	if errors.As(err, &studioErr) {
		return c.JSON(studioErr.HTTPStatusCode(), studioErr.ToJSON())
	}

	slog.Error("unhandled error", "error", err, "request_id", core.GetRequestID(c.Request().Context()))
	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
