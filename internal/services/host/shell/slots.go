package shell

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/mfhost/internal/services/host/platform/errors"
	"github.com/louisbranch/mfhost/internal/services/host/platform/httpx"
	"github.com/louisbranch/mfhost/internal/services/host/platform/pagerender"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/sidebar"
	"github.com/louisbranch/mfhost/internal/services/host/templates"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleSidebar selects the module on the browser's sidebar and renders it
// once settled. Load failures render the "no actions" view and are logged.
func (h *Handler) handleSidebar(w http.ResponseWriter, r *http.Request) {
	key := registry.ModuleKey(r.PathValue("module"))
	action := strings.TrimSpace(r.URL.Query().Get("action"))
	ctx, span := h.tracer.Start(httpx.RequestContext(r), "shell.sidebar", trace.WithAttributes(
		attribute.String("module", string(key)),
		attribute.String("action", action),
	))
	defer span.End()

	loc, _ := shellCopy(w, r)
	if !h.reg.IsRemote(key) {
		writeError(w, loc, apperrors.EK(apperrors.KindNotFound, "errors.not_found", "unknown module "+string(key)))
		return
	}

	state, err := h.settleSidebar(ctx, w, r, key)
	if err != nil {
		// The client went away; nothing left to render.
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.String("phase", state.Phase.String()), attribute.Int("actions", len(state.Actions)))

	if err := pagerender.WriteComponent(w, r.WithContext(ctx), http.StatusOK, sidebar.View(loc, h.base, state, action)); err != nil {
		h.logger.Printf("render sidebar module=%s err=%v", key, err)
		writeError(w, loc, err)
	}
}

// settleSidebar selects key on the browser's sidebar and waits for it to
// settle. The fetch outlives an aborted request so the next one can reuse it.
// If another tab moved the shared sidebar to a different module meanwhile, a
// one-off sidebar answers this request instead.
func (h *Handler) settleSidebar(ctx context.Context, w http.ResponseWriter, r *http.Request, key registry.ModuleKey) (sidebar.State, error) {
	sb := h.sidebarSession(w, r)
	sb.SetModule(context.WithoutCancel(ctx), key)
	err := sb.Wait(ctx)
	if err == nil {
		if state := sb.State(); state.Module == key {
			return state, nil
		}
	} else if !errors.Is(err, sidebar.ErrClosed) {
		return sidebar.State{}, err
	}

	once := h.newSidebar()
	defer once.Close()
	once.SetModule(ctx, key)
	if err := once.Wait(ctx); err != nil {
		return sidebar.State{}, err
	}
	return once.State(), nil
}

// handleRegion mounts the remote root component for the requested sub-path.
// Component load failures render a failure boundary with a retry control.
func (h *Handler) handleRegion(w http.ResponseWriter, r *http.Request) {
	key := registry.ModuleKey(r.PathValue("module"))
	subpath := "/" + r.PathValue("rest")
	ctx, span := h.tracer.Start(httpx.RequestContext(r), "shell.region", trace.WithAttributes(
		attribute.String("module", string(key)),
		attribute.String("subpath", subpath),
	))
	defer span.End()
	r = r.WithContext(ctx)

	loc, _ := shellCopy(w, r)
	if !h.reg.IsRemote(key) {
		writeError(w, loc, apperrors.EK(apperrors.KindNotFound, "errors.not_found", "unknown module "+string(key)))
		return
	}

	content, err := h.reg.LoadComponent(ctx, key, subpath)
	view := templates.RegionMount(string(key), content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Printf("region load failed module=%s subpath=%s err=%v", key, subpath, err)
		if !registry.IsComponentLoadError(err) {
			writeError(w, loc, err)
			return
		}
		view = templates.FailureBoundary(loc, h.reg.Label(key), h.regionSrc(key, subpath))
	}

	if err := pagerender.WriteComponent(w, r, http.StatusOK, view); err != nil {
		// A fragment that fails mid-render is treated like a failed load.
		h.logger.Printf("render region module=%s err=%v", key, err)
		_ = pagerender.WriteComponent(w, r, http.StatusOK, templates.FailureBoundary(loc, h.reg.Label(key), h.regionSrc(key, subpath)))
	}
}
