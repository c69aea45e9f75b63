// Package views renders the dashboard's HTML pages.
package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

// Page names.
const (
	PageIndex    = "index"
	PageMetrics  = "metrics"
	PageHistory  = "history"
	PageSettings = "settings"
	PageError    = "error"
)

// ErrUnknownPage is returned for names that were not parsed.
var ErrUnknownPage = errors.New("unknown page")

const layoutFile = "layout.html"

// ErrorPage is the data for the error template.
type ErrorPage struct {
	BuildNumber string
	Message     string
}

// Renderer executes one parsed template set per page, each wrapped in the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses layout.html plus <page>.html for every page in fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageIndex, PageMetrics, PageHistory, PageSettings, PageError} {
		t, err := template.New(name).ParseFS(fsys, layoutFile, name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page to w.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	return nil
}
