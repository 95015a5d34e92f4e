// Package pagerender centralizes host page rendering for full-page and htmx
// flows.
package pagerender

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/mfhost/internal/services/host/platform/httpx"
)

// Page describes one response. Fragment is served to htmx requests and
// Document to everything else; a nil Document always serves Fragment.
type Page struct {
	StatusCode int
	Document   templ.Component
	Fragment   templ.Component
}

// WritePage renders the variant matching r into a buffer and writes it.
// Nothing is written when rendering fails.
func WritePage(w http.ResponseWriter, r *http.Request, page Page) error {
	if w == nil {
		return nil
	}
	component := page.Fragment
	if !httpx.IsHTMXRequest(r) && page.Document != nil {
		component = page.Document
	}
	if page.Document != nil {
		w.Header().Add("Vary", "HX-Request")
	}
	return WriteComponent(w, r, page.StatusCode, component)
}

// WriteComponent renders one component as an HTML response.
func WriteComponent(w http.ResponseWriter, r *http.Request, statusCode int, component templ.Component) error {
	if w == nil {
		return nil
	}
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	var buf bytes.Buffer
	if component != nil {
		if err := component.Render(httpx.RequestContext(r), &buf); err != nil {
			return err
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
	return nil
}
