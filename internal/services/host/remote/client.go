// Package remote loads remote module code over HTTP.
//
// Each remote publishes an entry manifest naming its scope, version, shared
// library versions, and the URLs of its exposed root component ("./App") and
// action list ("./actions"). The client resolves those exposes and fetches
// them on demand; it never executes remote code.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/mfhost/internal/platform/timeouts"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	tracerName     = "github.com/louisbranch/mfhost/internal/services/host/remote"
	maxPayloadSize = 4 << 20

	// HeaderHostPrefix carries the host route prefix the remote is mounted under.
	HeaderHostPrefix = "X-Host-Prefix"
)

// Config defines remote client inputs.
type Config struct {
	Remotes    map[registry.ModuleKey]Reference
	HTTPClient *http.Client
	Timeout    time.Duration
	EntryTTL   time.Duration
	// Shared lists host library versions remotes must be major-compatible with.
	Shared   map[string]string
	Sanitize bool
	Logger   *log.Logger
}

// Client fetches remote entries, root fragments, and action lists.
type Client struct {
	remotes  map[registry.ModuleKey]Reference
	http     *http.Client
	timeout  time.Duration
	entryTTL time.Duration
	shared   map[string]string
	policy   *bluemonday.Policy
	tracer   trace.Tracer
	logger   *log.Logger
	now      func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[registry.ModuleKey]cachedEntry
}

type cachedEntry struct {
	entry     Entry
	fetchedAt time.Time
}

// NewClient validates cfg and builds a remote client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Remotes) == 0 {
		return nil, errors.New("at least one remote is required")
	}
	remotes := make(map[registry.ModuleKey]Reference, len(cfg.Remotes))
	for key, ref := range cfg.Remotes {
		if ref.EntryURL == nil || strings.TrimSpace(ref.Scope) == "" {
			return nil, fmt.Errorf("remote %q: scope and entry url are required", key)
		}
		remotes[key] = ref
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.RemoteFetch
	}
	entryTTL := cfg.EntryTTL
	if entryTTL < 0 {
		entryTTL = 0
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	shared := make(map[string]string, len(cfg.Shared))
	for name, version := range cfg.Shared {
		shared[name] = version
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	client := &Client{
		remotes:  remotes,
		http:     httpClient,
		timeout:  timeout,
		entryTTL: entryTTL,
		shared:   shared,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
		now:      time.Now,
		entries:  map[registry.ModuleKey]cachedEntry{},
	}
	if cfg.Sanitize {
		client.policy = newFragmentPolicy()
	}
	return client, nil
}

// LoadActions fetches the action list exposed by the remote for key.
func (c *Client) LoadActions(ctx context.Context, key registry.ModuleKey) ([]registry.Action, error) {
	ctx, span := c.tracer.Start(ctx, "remote.load", trace.WithAttributes(
		attribute.String("module", string(key)),
		attribute.String("expose", ExposeActions),
	))
	defer span.End()

	actions, err := c.loadActions(ctx, key)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("actions", len(actions)))
	return actions, nil
}

func (c *Client) loadActions(ctx context.Context, key registry.ModuleKey) ([]registry.Action, error) {
	ref, entry, err := c.resolveEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	target, ok := entry.resolve(ref.EntryURL, ExposeActions)
	if !ok {
		return nil, newError(KindMissing, ref.Scope, "", fmt.Errorf("entry does not expose %s", ExposeActions))
	}
	body, err := c.get(ctx, ref, target, "application/json", nil)
	if err != nil {
		return nil, err
	}
	actions, dropped, err := parseActions(body)
	if err != nil {
		return nil, newError(KindMalformed, ref.Scope, target.String(), err)
	}
	for _, d := range dropped {
		c.logger.Printf("remote actions dropped module=%s index=%d reason=%s", key, d.index, d.reason)
	}
	if len(dropped) > 0 {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("actions.dropped", len(dropped)))
	}
	return actions, nil
}

// LoadComponent fetches the root fragment the remote renders for subpath.
func (c *Client) LoadComponent(ctx context.Context, key registry.ModuleKey, subpath string) (templ.Component, error) {
	ctx, span := c.tracer.Start(ctx, "remote.load", trace.WithAttributes(
		attribute.String("module", string(key)),
		attribute.String("expose", ExposeApp),
		attribute.String("subpath", subpath),
	))
	defer span.End()

	fragment, err := c.loadFragment(ctx, key, subpath)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return templ.Raw(fragment), nil
}

func (c *Client) loadFragment(ctx context.Context, key registry.ModuleKey, subpath string) (string, error) {
	ref, entry, err := c.resolveEntry(ctx, key)
	if err != nil {
		return "", err
	}
	app, ok := entry.resolve(ref.EntryURL, ExposeApp)
	if !ok {
		return "", newError(KindMissing, ref.Scope, "", fmt.Errorf("entry does not expose %s", ExposeApp))
	}
	target := appURL(app, subpath)
	headers := http.Header{}
	headers.Set(HeaderHostPrefix, "/"+string(key))
	body, err := c.get(ctx, ref, target, "text/html", headers)
	if err != nil {
		return "", err
	}
	fragment, err := prepareFragment(string(body), target, c.policy)
	if err != nil {
		return "", newError(KindMalformed, ref.Scope, target.String(), err)
	}
	return fragment, nil
}

// CheckEntry fetches the entry for key bypassing the cache and refreshes it on
// success.
func (c *Client) CheckEntry(ctx context.Context, key registry.ModuleKey) (Entry, error) {
	ref, ok := c.remotes[key]
	if !ok {
		return Entry{}, newError(KindUnconfigured, string(key), "", nil)
	}
	entry, err := c.fetchEntry(ctx, ref)
	if err != nil {
		return Entry{}, err
	}
	c.storeEntry(key, entry)
	return entry, nil
}

func (c *Client) resolveEntry(ctx context.Context, key registry.ModuleKey) (Reference, Entry, error) {
	ref, ok := c.remotes[key]
	if !ok {
		return Reference{}, Entry{}, newError(KindUnconfigured, string(key), "", nil)
	}
	if entry, ok := c.cachedEntry(key); ok {
		return ref, entry, nil
	}
	// The shared fetch must not inherit one caller's cancellation; get still
	// bounds it by the client timeout. Each caller waits on its own context.
	fetchCtx := context.WithoutCancel(ctx)
	results := c.group.DoChan(string(key), func() (any, error) {
		entry, err := c.fetchEntry(fetchCtx, ref)
		if err != nil {
			return Entry{}, err
		}
		c.storeEntry(key, entry)
		return entry, nil
	})
	select {
	case res := <-results:
		if res.Err != nil {
			return Reference{}, Entry{}, res.Err
		}
		return ref, res.Val.(Entry), nil
	case <-ctx.Done():
		return Reference{}, Entry{}, newError(KindUnreachable, ref.Scope, ref.EntryURL.String(), ctx.Err())
	}
}

func (c *Client) fetchEntry(ctx context.Context, ref Reference) (Entry, error) {
	ctx, span := c.tracer.Start(ctx, "remote.entry", trace.WithAttributes(
		attribute.String("scope", ref.Scope),
		attribute.String("url", ref.EntryURL.String()),
	))
	defer span.End()

	body, err := c.get(ctx, ref, ref.EntryURL, "application/json", nil)
	if err != nil {
		recordError(span, err)
		return Entry{}, err
	}
	entry, err := parseEntry(body)
	if err != nil {
		err = newError(KindMalformed, ref.Scope, ref.EntryURL.String(), err)
		recordError(span, err)
		return Entry{}, err
	}
	if entry.Name != ref.Scope {
		err = newError(KindMismatch, ref.Scope, ref.EntryURL.String(), fmt.Errorf("entry name %q does not match scope", entry.Name))
		recordError(span, err)
		return Entry{}, err
	}
	if err := checkShared(c.shared, entry.Shared); err != nil {
		err = newError(KindMismatch, ref.Scope, ref.EntryURL.String(), err)
		recordError(span, err)
		return Entry{}, err
	}
	span.SetAttributes(attribute.String("version", entry.Version))
	return entry, nil
}

func (c *Client) cachedEntry(key registry.ModuleKey) (Entry, bool) {
	if c.entryTTL <= 0 {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[key]
	if !ok || c.now().Sub(cached.fetchedAt) >= c.entryTTL {
		return Entry{}, false
	}
	return cached.entry, true
}

func (c *Client) storeEntry(key registry.ModuleKey, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedEntry{entry: entry, fetchedAt: c.now()}
}

func (c *Client) get(ctx context.Context, ref Reference, target *url.URL, accept string, headers http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, newError(KindUnreachable, ref.Scope, target.String(), err)
	}
	for name, values := range headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	req.Header.Set("Accept", accept)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(KindUnreachable, ref.Scope, target.String(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, newError(KindMissing, ref.Scope, target.String(), fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, newError(KindUnreachable, ref.Scope, target.String(), fmt.Errorf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize+1))
	if err != nil {
		return nil, newError(KindUnreachable, ref.Scope, target.String(), err)
	}
	if len(body) > maxPayloadSize {
		return nil, newError(KindMalformed, ref.Scope, target.String(), fmt.Errorf("payload exceeds %d bytes", maxPayloadSize))
	}
	return body, nil
}

// appURL appends the module sub-path to the exposed app URL.
func appURL(app *url.URL, subpath string) *url.URL {
	out := *app
	subpath = strings.TrimSpace(subpath)
	if subpath == "" || subpath == "/" {
		return &out
	}
	if !strings.HasPrefix(subpath, "/") {
		subpath = "/" + subpath
	}
	out.Path = strings.TrimRight(out.Path, "/") + subpath
	out.RawPath = ""
	return &out
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
