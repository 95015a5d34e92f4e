// Package shell is the host composition root for HTTP requests.
//
// Every page is derived from the request path alone: the header marks the
// current module, the sidebar slot and the main region are rendered as
// placeholders that load their content from the /_shell endpoints once
// mounted. Unknown paths resolve to home and still render the shell.
//
// Each browser keeps one sidebar across requests. Navigating within the
// module it already shows renders the settled action list inline, so actions
// are only fetched again when the module changes.
package shell

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/louisbranch/mfhost/internal/platform/timeouts"
	"github.com/louisbranch/mfhost/internal/services/host/navigation"
	apperrors "github.com/louisbranch/mfhost/internal/services/host/platform/errors"
	hosti18n "github.com/louisbranch/mfhost/internal/services/host/platform/i18n"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/sidebar"
	"github.com/louisbranch/mfhost/internal/services/host/templates"
	"github.com/louisbranch/mfhost/internal/services/shared/i18nhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

const (
	tracerName = "github.com/louisbranch/mfhost/internal/services/host/shell"

	sidebarRoute = "/_shell/sidebar/"
	regionRoute  = "/_shell/region/"
)

// Config defines shell handler inputs.
type Config struct {
	Registry *registry.Registry
	// BasePath is the public path the host is mounted under.
	BasePath string
	HTMXSrc  string
	// SidebarTTL is how long an unused browser sidebar is kept.
	SidebarTTL time.Duration
	Logger     *log.Logger
}

// Handler serves the shell page and its deferred slots.
type Handler struct {
	reg      *registry.Registry
	base     string
	htmxSrc  string
	logger   *log.Logger
	tracer   trace.Tracer
	sessions *sidebarStore
}

// New validates cfg and builds a shell handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	ttl := cfg.SidebarTTL
	if ttl <= 0 {
		ttl = timeouts.SidebarSession
	}
	h := &Handler{
		reg:     cfg.Registry,
		base:    strings.TrimRight(strings.TrimSpace(cfg.BasePath), "/"),
		htmxSrc: strings.TrimSpace(cfg.HTMXSrc),
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
	h.sessions = newSidebarStore(ttl, h.newSidebar)
	return h, nil
}

// Close cancels pending sidebar loads and drops every browser session.
func (h *Handler) Close() {
	if h == nil {
		return
	}
	h.sessions.close()
}

func (h *Handler) newSidebar() *sidebar.Sidebar {
	return sidebar.New(h.reg, sidebar.WithErrorHandler(func(key registry.ModuleKey, err error) {
		h.logger.Printf("sidebar actions failed module=%s err=%v", key, err)
	}))
}

// Register mounts shell routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("GET "+sidebarRoute+"{module}", h.handleSidebar)
	mux.HandleFunc("GET "+regionRoute+"{module}/{rest...}", h.handleRegion)
	mux.HandleFunc("GET /{path...}", h.handlePage)
}

func (h *Handler) path(p string) string {
	return templates.Path(h.base, p)
}

func (h *Handler) sidebarSrc(state navigation.State) string {
	src := h.path(sidebarRoute + url.PathEscape(string(state.Module)))
	if state.Action != "" {
		src += "?" + url.Values{"action": {state.Action}}.Encode()
	}
	return src
}

func (h *Handler) regionSrc(key registry.ModuleKey, subpath string) string {
	rest := strings.TrimPrefix(subpath, "/")
	return h.path(regionRoute + url.PathEscape(string(key)) + "/" + rest)
}

// shellCopy resolves the request language, persisting an explicit choice.
func shellCopy(w http.ResponseWriter, r *http.Request) (hosti18n.ShellCopy, language.Tag) {
	tag, persist := i18nhttp.ResolveTag(r)
	if persist {
		i18nhttp.SetLanguageCookie(w, tag)
	}
	return hosti18n.Shell(tag), tag
}

// writeError writes a plain-text error in the request language.
func writeError(w http.ResponseWriter, loc hosti18n.ShellCopy, err error) {
	status := apperrors.HTTPStatus(err)
	key := apperrors.LocalizationKey(err)
	if key == "" {
		switch status {
		case http.StatusNotFound:
			key = "errors.not_found"
		case http.StatusServiceUnavailable:
			key = "errors.unavailable"
		default:
			key = "errors.internal"
		}
	}
	http.Error(w, loc.Text(key, http.StatusText(status)), status)
}
