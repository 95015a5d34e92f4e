package shell

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/mfhost/internal/services/host/platform/httpx"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/registry/registrytest"
	"github.com/louisbranch/mfhost/internal/services/host/sidebar"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T, loader *registrytest.Loader, base string) (http.Handler, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	h, err := New(Config{
		Registry: registrytest.NewRegistry(t, loader),
		BasePath: base,
		HTMXSrc:  "/vendor/htmx.js",
		Logger:   log.New(logs, "", 0),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return httpx.StripBasePath(base)(mux), logs
}

func get(t *testing.T, h http.Handler, target string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	return getWithCookies(t, h, target, htmx, nil)
}

func getWithCookies(t *testing.T, h http.Handler, target string, htmx bool, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// browser replays cookies across requests like a single tab would.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) get(target string) string {
	b.t.Helper()
	jar := make([]*http.Cookie, 0, len(b.cookies))
	for _, cookie := range b.cookies {
		jar = append(jar, cookie)
	}
	rr := getWithCookies(b.t, b.h, target, true, jar)
	if rr.Code != http.StatusOK {
		b.t.Fatalf("GET %s status = %d, want %d", target, rr.Code, http.StatusOK)
	}
	for _, cookie := range rr.Result().Cookies() {
		b.cookies[cookie.Name] = cookie
	}
	return rr.Body.String()
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing registry")
	}
}

func TestHomePageRendersChrome(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{Actions: registrytest.SampleActions()}, "/")
	rr := get(t, h, "/", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertContains(t, rr.Body.String(),
		"<!doctype html>",
		"<title>Micro-Frontend Host</title>",
		`<script src="/vendor/htmx.js"></script>`,
		`<a href="/" class="active" aria-current="page">Home</a>`,
		`<a href="/module-one">Module One</a>`,
		`<a href="/module-two">Module Two</a>`,
		"Select a module to see available actions (e.g., dashboard or view).",
		`<main id="host-region" class="host-region"></main>`,
	)
}

func TestUnknownPathRendersHomeShell(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	h, _ := newTestServer(t, loader, "/")
	for _, path := range []string{"/unknown", "/modules", "/a/b/c"} {
		rr := get(t, h, path, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, rr.Code, http.StatusOK)
		}
		body := rr.Body.String()
		assertContains(t, body, `<a href="/" class="active" aria-current="page">Home</a>`, `<main id="host-region" class="host-region"></main>`)
		if strings.Contains(body, "/_shell/") {
			t.Fatalf("GET %s mounted a slot: %s", path, body)
		}
	}
	if loader.ActionCalls(registry.ModuleOne) != 0 || loader.ComponentCalls(registry.ModuleOne) != 0 {
		t.Fatal("unknown paths must not reach remotes")
	}
}

func TestPathWithModulePrefixResolvesToModule(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{Actions: registrytest.SampleActions()}, "/")
	body := get(t, h, "/module-onex/sort-users", false).Body.String()
	assertContains(t, body,
		`<a href="/module-one" class="active" aria-current="page">Module One</a>`,
		`hx-get="/_shell/sidebar/module-one"`,
		`hx-get="/_shell/region/module-one/x/sort-users"`,
	)
	if strings.Contains(body, "?action=") {
		t.Fatalf("first segment is not a module key, so no action applies: %s", body)
	}
}

func TestModulePageMarksActiveNavAndMountsSlots(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{Actions: registrytest.SampleActions()}, "/")
	body := get(t, h, "/module-one/", false).Body.String()
	assertContains(t, body,
		`<a href="/module-one" class="active" aria-current="page">Module One</a>`,
		`<a href="/">Home</a>`,
		`hx-get="/_shell/sidebar/module-one"`,
		`hx-get="/_shell/region/module-one/"`,
		"Loading actions...",
		"Loading module...",
	)
	if strings.Contains(body, "?action=") {
		t.Fatalf("module landing must not carry an action: %s", body)
	}
}

func TestNavigateHomeToModuleTwoAction(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	h, _ := newTestServer(t, loader, "/")

	if rr := get(t, h, "/", false); rr.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rr.Code)
	}

	rr := get(t, h, "/module-two/add-card", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /module-two/add-card status = %d", rr.Code)
	}
	page := rr.Body.String()
	if strings.Contains(page, "<html") {
		t.Fatalf("htmx navigation returned a full document: %s", page)
	}
	assertContains(t, page,
		`<div id="host-shell" data-module="module-two">`,
		`<a href="/module-two" class="active" aria-current="page">Module Two</a>`,
		`hx-get="/_shell/sidebar/module-two?action=add-card"`,
		`hx-get="/_shell/region/module-two/add-card"`,
	)

	sidebarBody := get(t, h, "/_shell/sidebar/module-two?action=add-card", true).Body.String()
	assertContains(t, sidebarBody,
		"Module actions",
		`class="active" aria-current="true" hx-get="/module-two/add-card"`,
		">Archive Board</button>",
	)
	if strings.Count(sidebarBody, `class="active"`) != 1 {
		t.Fatalf("expected exactly one active action: %s", sidebarBody)
	}
	if got := loader.ActionCalls(registry.ModuleTwo); got != 1 {
		t.Fatalf("ActionCalls(module-two) = %d, want 1", got)
	}
	if got := loader.ActionCalls(registry.ModuleOne); got != 0 {
		t.Fatalf("ActionCalls(module-one) = %d, want 0", got)
	}

	regionBody := get(t, h, "/_shell/region/module-two/add-card", true).Body.String()
	assertContains(t, regionBody, `<div data-remote-module="module-two"><div data-remote="module-two"></div></div>`)
	if got := loader.Subpaths(); len(got) != 1 || got[0] != "/add-card" {
		t.Fatalf("Subpaths() = %v, want [/add-card]", got)
	}
	if got := loader.ComponentCalls(registry.ModuleOne); got != 0 {
		t.Fatalf("ComponentCalls(module-one) = %d, want 0", got)
	}
}

func TestUnrecognizedSlugHasNoActiveAction(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{Actions: registrytest.SampleActions()}, "/")
	body := get(t, h, "/_shell/sidebar/module-one?action=nope", true).Body.String()
	assertContains(t, body, ">Sort Users</button>", ">Insert User</button>")
	if strings.Contains(body, `class="active"`) {
		t.Fatalf("unexpected active action: %s", body)
	}
}

func TestSidebarFailureRendersNoActionsPlaceholder(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{ActionErrs: map[registry.ModuleKey]error{registry.ModuleOne: errors.New("connection refused")}}
	h, logs := newTestServer(t, loader, "/")
	rr := get(t, h, "/_shell/sidebar/module-one", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertContains(t, rr.Body.String(), "Select a module to see available actions (e.g., dashboard or view).")
	assertContains(t, logs.String(), "sidebar actions failed module=module-one", "connection refused")
}

func TestRegionFailureRendersBoundaryWithRetry(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{ComponentErrs: map[registry.ModuleKey]error{registry.ModuleOne: errors.New("remote offline")}}
	h, logs := newTestServer(t, loader, "/")
	rr := get(t, h, "/_shell/region/module-one/sort-users", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	assertContains(t, rr.Body.String(),
		"Module One failed to load.",
		`hx-get="/_shell/region/module-one/sort-users"`,
		">Retry</button>",
	)
	assertContains(t, logs.String(), "region load failed module=module-one")

	// Retry succeeds once the remote recovers.
	delete(loader.ComponentErrs, registry.ModuleOne)
	assertContains(t, get(t, h, "/_shell/region/module-one/sort-users", true).Body.String(), `data-remote="module-one"`)
}

func TestSlotsRejectUnknownModules(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{}, "/")
	for _, target := range []string{"/_shell/sidebar/home", "/_shell/sidebar/nope", "/_shell/region/nope/", "/_shell/region/home/x"} {
		if rr := get(t, h, target, true); rr.Code != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want %d", target, rr.Code, http.StatusNotFound)
		}
	}
}

func TestUnknownSlotErrorIsLocalized(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{}, "/")
	rr := get(t, h, "/_shell/region/nope/", true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	assertContains(t, rr.Body.String(), "Module not found.")

	req := httptest.NewRequest(http.MethodGet, "/_shell/sidebar/nope", nil)
	req.AddCookie(&http.Cookie{Name: "mfhost_lang", Value: "pt-BR"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	assertContains(t, rr.Body.String(), "Módulo não encontrado.")
}

func TestBasePathPrefixesLinks(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{Actions: registrytest.SampleActions()}, "/shell/")
	body := get(t, h, "/shell/module-one/sort-users", false).Body.String()
	assertContains(t, body,
		`href="/shell/static/shell.css"`,
		`<a href="/shell/">Home</a>`,
		`<a href="/shell/module-one" class="active" aria-current="page">Module One</a>`,
		`hx-get="/shell/_shell/sidebar/module-one?action=sort-users"`,
		`hx-get="/shell/_shell/region/module-one/sort-users"`,
	)

	sidebarBody := get(t, h, "/shell/_shell/sidebar/module-one?action=sort-users", true).Body.String()
	assertContains(t, sidebarBody, `hx-get="/shell/module-one/sort-users"`)
}

func TestLanguageQueryPersistsCookie(t *testing.T) {
	t.Parallel()

	h, _ := newTestServer(t, &registrytest.Loader{}, "/")
	rr := get(t, h, "/?lang=pt-BR", false)
	assertContains(t, rr.Body.String(), `<html lang="pt-BR">`, ">Início</a>", "Host de Micro-Frontends")
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "mfhost_lang" || cookies[0].Value != "pt-BR" {
		t.Fatalf("cookies = %v, want mfhost_lang=pt-BR", cookies)
	}
}

func TestSameModuleNavigationKeepsSidebarActions(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	h, _ := newTestServer(t, loader, "/")
	tab := newBrowser(t, h)

	page := tab.get("/module-two/add-card")
	assertContains(t, page, `hx-get="/_shell/sidebar/module-two?action=add-card"`, "Loading actions...")
	assertContains(t, tab.get("/_shell/sidebar/module-two?action=add-card"),
		`class="active" aria-current="true" hx-get="/module-two/add-card"`)
	tab.get("/_shell/region/module-two/add-card")

	page = tab.get("/module-two/archive-board")
	if strings.Contains(page, "/_shell/sidebar/") || strings.Contains(page, "Loading actions...") {
		t.Fatalf("same-module navigation remounted the sidebar: %s", page)
	}
	assertContains(t, page,
		`class="active" aria-current="true" hx-get="/module-two/archive-board"`,
		`hx-get="/_shell/region/module-two/archive-board"`,
	)
	if strings.Count(page, `aria-current="true"`) != 1 {
		t.Fatalf("expected exactly one active action: %s", page)
	}
	if got := loader.ActionCalls(registry.ModuleTwo); got != 1 {
		t.Fatalf("ActionCalls(module-two) = %d, want 1", got)
	}

	// A reloaded slot for the same module is served from the settled list.
	tab.get("/_shell/sidebar/module-two?action=archive-board")
	if got := loader.ActionCalls(registry.ModuleTwo); got != 1 {
		t.Fatalf("ActionCalls(module-two) after slot reload = %d, want 1", got)
	}

	// Leaving the module and coming back is a module change.
	tab.get("/")
	page = tab.get("/module-two/add-card")
	assertContains(t, page, `hx-get="/_shell/sidebar/module-two?action=add-card"`)
	tab.get("/_shell/sidebar/module-two?action=add-card")
	if got := loader.ActionCalls(registry.ModuleTwo); got != 2 {
		t.Fatalf("ActionCalls(module-two) after returning = %d, want 2", got)
	}
}

func TestSwitchingModulesFetchesNewActions(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	h, _ := newTestServer(t, loader, "/")
	tab := newBrowser(t, h)

	tab.get("/module-one/sort-users")
	tab.get("/_shell/sidebar/module-one?action=sort-users")
	page := tab.get("/module-two")
	assertContains(t, page, `hx-get="/_shell/sidebar/module-two"`)
	body := tab.get("/_shell/sidebar/module-two")
	assertContains(t, body, ">Add Card</button>")
	if strings.Contains(body, ">Sort Users</button>") {
		t.Fatalf("module-one actions leaked into module-two: %s", body)
	}
	if loader.ActionCalls(registry.ModuleOne) != 1 || loader.ActionCalls(registry.ModuleTwo) != 1 {
		t.Fatalf("ActionCalls = %d/%d, want 1/1", loader.ActionCalls(registry.ModuleOne), loader.ActionCalls(registry.ModuleTwo))
	}
}

func TestSidebarStoreExpiresIdleSessions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newSidebarStore(time.Minute, func() *sidebar.Sidebar { return sidebar.New(nil) })
	store.now = func() time.Time { return now }

	id, sb := store.create()
	if got := store.get(id); got != sb {
		t.Fatal("get() did not return the created sidebar")
	}
	now = now.Add(30 * time.Second)
	if store.get(id) == nil {
		t.Fatal("session expired before its ttl")
	}
	now = now.Add(2 * time.Minute)
	if store.get(id) != nil {
		t.Fatal("idle session survived past its ttl")
	}
	if got := sb.Wait(context.Background()); !errors.Is(got, sidebar.ErrClosed) {
		t.Fatalf("Wait() on expired sidebar = %v, want %v", got, sidebar.ErrClosed)
	}

	store.create()
	now = now.Add(2 * time.Minute)
	store.create()
	if got := store.count(); got != 1 {
		t.Fatalf("count() = %d, want 1 after sweep", got)
	}
	store.close()
	if got := store.count(); got != 0 {
		t.Fatalf("count() after close = %d, want 0", got)
	}
}

func TestAbortedSidebarRequestKeepsFetchForNextOne(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	loader := &registrytest.Loader{
		Actions: registrytest.SampleActions(),
		Gates:   map[registry.ModuleKey]chan struct{}{registry.ModuleOne: gate},
	}
	h, _ := newTestServer(t, loader, "/")
	tab := newBrowser(t, h)
	tab.get("/module-one")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/_shell/sidebar/module-one", nil).WithContext(ctx)
	for _, cookie := range tab.cookies {
		req.AddCookie(cookie)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}()
	for loader.ActionCalls(registry.ModuleOne) == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	close(gate)
	assertContains(t, tab.get("/_shell/sidebar/module-one"), ">Sort Users</button>")
	if got := loader.ActionCalls(registry.ModuleOne); got != 1 {
		t.Fatalf("ActionCalls(module-one) = %d, want 1", got)
	}
}
