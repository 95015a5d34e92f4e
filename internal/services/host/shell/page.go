package shell

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/mfhost/internal/services/host/navigation"
	"github.com/louisbranch/mfhost/internal/services/host/platform/httpx"
	hosti18n "github.com/louisbranch/mfhost/internal/services/host/platform/i18n"
	"github.com/louisbranch/mfhost/internal/services/host/platform/pagerender"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/sidebar"
	"github.com/louisbranch/mfhost/internal/services/host/templates"
	"github.com/louisbranch/mfhost/internal/services/shared/i18nhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	state := navigation.Derive(h.reg, r.URL.Path)
	ctx, span := h.tracer.Start(httpx.RequestContext(r), "shell.page", trace.WithAttributes(
		attribute.String("module", string(state.Module)),
		attribute.String("action", state.Action),
		attribute.Bool("htmx", httpx.IsHTMXRequest(r)),
	))
	defer span.End()
	r = r.WithContext(ctx)

	loc, tag := shellCopy(w, r)
	shown := h.syncSidebar(w, r, state)
	opts := templates.ShellOptions{
		Copy:      loc,
		Base:      h.base,
		Module:    string(state.Module),
		Nav:       h.navLinks(loc, state),
		Languages: h.languageLinks(loc, tag, r),
		Sidebar:   h.sidebarSlot(loc, state, shown),
		Region:    h.regionSlot(loc, state, r.URL.Path),
	}
	page := pagerender.Page{
		Document: templates.Layout(templates.LayoutOptions{Shell: opts, HTMXSrc: h.htmxSrc}),
		Fragment: templates.Shell(opts),
	}
	if err := pagerender.WritePage(w, r, page); err != nil {
		h.logger.Printf("render shell page path=%s err=%v", r.URL.Path, err)
		writeError(w, loc, err)
	}
}

func (h *Handler) navLinks(loc hosti18n.ShellCopy, state navigation.State) []templates.NavLink {
	links := []templates.NavLink{{
		Label:  loc.Home,
		Href:   h.path(navigation.ModulePath(registry.Home)),
		Active: state.IsHome(),
	}}
	for _, entry := range h.reg.Entries() {
		links = append(links, templates.NavLink{
			Label:  entry.Label,
			Href:   h.path(entry.Path),
			Active: state.Module == entry.Key,
		})
	}
	return links
}

func (h *Handler) languageLinks(loc hosti18n.ShellCopy, active language.Tag, r *http.Request) []templates.LanguageLink {
	options := i18nhttp.LanguageOptions(active, func(tag language.Tag) string {
		return loc.Text(i18nhttp.LanguageKeyLabel(tag), tag.String())
	})
	links := make([]templates.LanguageLink, 0, len(options))
	for _, option := range options {
		links = append(links, templates.LanguageLink{
			Label:  option.Label,
			Href:   i18nhttp.LanguageURL(h.path(r.URL.Path), r.URL.RawQuery, option.Tag),
			Active: option.Active,
		})
	}
	return links
}

// syncSidebar returns what the browser's sidebar showed before this page.
// Going home resets it; a module page leaves the fetch to the sidebar slot.
func (h *Handler) syncSidebar(w http.ResponseWriter, r *http.Request, state navigation.State) sidebar.State {
	if state.IsHome() {
		if sb := h.lookupSidebar(r); sb != nil {
			sb.SetModule(r.Context(), registry.Home)
		}
		return sidebar.State{Module: registry.Home, Phase: sidebar.PhaseIdle}
	}
	return h.sidebarSession(w, r).State()
}

func (h *Handler) sidebarSlot(loc hosti18n.ShellCopy, state navigation.State, shown sidebar.State) templ.Component {
	if state.IsHome() {
		return templates.SidebarSlot("", templates.SidebarIdle(loc))
	}
	if shown.Module == state.Module && (shown.Phase == sidebar.PhaseLoaded || shown.Phase == sidebar.PhaseEmpty) {
		// Same module: only the active marker moves.
		return templates.SidebarSlot("", sidebar.View(loc, h.base, shown, state.Action))
	}
	return templates.SidebarSlot(h.sidebarSrc(state), templates.SidebarLoading(loc))
}

func (h *Handler) regionSlot(loc hosti18n.ShellCopy, state navigation.State, path string) templ.Component {
	if state.IsHome() {
		return templates.RegionEmpty()
	}
	return templates.RegionLoading(loc, h.regionSrc(state.Module, navigation.Subpath(state.Module, path)))
}
