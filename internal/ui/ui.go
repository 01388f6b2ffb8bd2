// Package ui provides the embedded single-page studio UI.
package ui

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"adaptstudio/internal/intake"
	"adaptstudio/internal/progress"
	"adaptstudio/internal/prompt"
	"adaptstudio/internal/slot"
)

//go:embed templates/*.html static/css/*.css static/js/*.js static/*.svg
var content embed.FS

// StaticPrefix is the URL prefix the assets are served under.
const StaticPrefix = "/static/"

// Handler serves the studio page and its assets.
type Handler struct {
	indexTmpl *template.Template
	staticFS  http.Handler
	data      pageData
}

type pageData struct {
	Slots         []slot.Definition
	Phases        []string
	DefaultPrompt string
	MaxFileSizeMB int64
	Model         string
}

// New parses the templates. model is shown in the header badge.
func New(model string) (*Handler, error) {
	tmpl, err := template.ParseFS(content, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(content, "static")
	if err != nil {
		return nil, err
	}

	return &Handler{
		indexTmpl: tmpl,
		staticFS:  http.StripPrefix(StaticPrefix, http.FileServer(http.FS(staticSub))),
		data: pageData{
			Slots:         slot.Definitions(),
			Phases:        progress.Phases,
			DefaultPrompt: prompt.DefaultPrompt,
			MaxFileSizeMB: intake.MaxFileSize / (1024 * 1024),
			Model:         model,
		},
	}, nil
}

// Index serves GET /, the studio page.
func (h *Handler) Index(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.indexTmpl.ExecuteTemplate(&buf, "layout", h.data); err != nil {
		return err
	}
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(c.Response().Writer)
	return err
}

// Static serves GET /static/*: embedded CSS and JS assets.
func (h *Handler) Static(c echo.Context) error {
	h.staticFS.ServeHTTP(c.Response().Writer, c.Request())
	return nil
}
