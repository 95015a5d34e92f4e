package pagerender

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
)

func TestWritePageSelectsVariant(t *testing.T) {
	t.Parallel()

	page := Page{
		Document: templ.Raw("<html>full</html>"),
		Fragment: templ.Raw("<div>fragment</div>"),
	}

	rr := httptest.NewRecorder()
	if err := WritePage(rr, httptest.NewRequest(http.MethodGet, "/", nil), page); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}
	if rr.Body.String() != "<html>full</html>" {
		t.Fatalf("body = %q, want full document", rr.Body.String())
	}
	if rr.Header().Get("Vary") != "HX-Request" {
		t.Fatalf("Vary = %q, want HX-Request", rr.Header().Get("Vary"))
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	if err := WritePage(rr, req, page); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}
	if rr.Body.String() != "<div>fragment</div>" {
		t.Fatalf("body = %q, want fragment", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
}

func TestWriteComponentWritesNothingOnRenderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	rr := httptest.NewRecorder()
	err := WriteComponent(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, failing)
	if !errors.Is(err, boom) {
		t.Fatalf("WriteComponent() error = %v, want %v", err, boom)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("body = %q, want empty", rr.Body.String())
	}
}

func TestWriteComponentDefaultsStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	if err := WriteComponent(rr, nil, 0, templ.Raw("ok")); err != nil {
		t.Fatalf("WriteComponent() error = %v", err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}
