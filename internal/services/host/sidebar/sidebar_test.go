package sidebar

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	hosti18n "github.com/louisbranch/mfhost/internal/services/host/platform/i18n"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/registry/registrytest"
	"golang.org/x/text/language"
)

func waitSettled(t *testing.T, s *Sidebar) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return s.State()
}

func renderView(t *testing.T, state State, action string) string {
	t.Helper()
	var buf bytes.Buffer
	loc := hosti18n.Shell(language.AmericanEnglish)
	if err := View(loc, "/", state, action).Render(context.Background(), &buf); err != nil {
		t.Fatalf("View().Render() error = %v", err)
	}
	return buf.String()
}

func TestNewSidebarIsIdle(t *testing.T) {
	t.Parallel()

	s := New(registrytest.NewRegistry(t, &registrytest.Loader{}))
	state := s.State()
	if state.Phase != PhaseIdle || state.Module != registry.Home || len(state.Actions) != 0 {
		t.Fatalf("State() = %+v, want idle home", state)
	}
	if got := renderView(t, state, ""); !strings.Contains(got, "Select a module to see available actions") {
		t.Fatalf("idle view = %q", got)
	}
}

func TestSetModuleLoadsActionsAndMarksActive(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	reg := registrytest.NewRegistry(t, loader)
	s := New(reg)
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleOne)
	state := waitSettled(t, s)
	if state.Phase != PhaseLoaded {
		t.Fatalf("Phase = %v, want %v", state.Phase, PhaseLoaded)
	}
	if len(state.Actions) != 2 || state.Actions[0].Label != "Sort Users" || state.Actions[1].Label != "Insert User" {
		t.Fatalf("Actions = %+v", state.Actions)
	}

	items := Items(state, "sort-users")
	if len(items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(items))
	}
	if !items[0].Active || items[1].Active {
		t.Fatalf("active flags = %v/%v, want true/false", items[0].Active, items[1].Active)
	}
	if items[0].Href != "/module-one/sort-users" {
		t.Fatalf("Href = %q, want %q", items[0].Href, "/module-one/sort-users")
	}

	got := renderView(t, state, "sort-users")
	for _, want := range []string{"Module actions", ">Sort Users</button>", ">Insert User</button>", `class="active"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("loaded view missing %q: %q", want, got)
		}
	}
	if strings.Count(got, `class="active"`) != 1 {
		t.Fatalf("expected exactly one active item: %q", got)
	}
}

func TestLoadFailureRendersNoActionsPlaceholder(t *testing.T) {
	t.Parallel()

	boom := errors.New("remote offline")
	loader := &registrytest.Loader{ActionErrs: map[registry.ModuleKey]error{registry.ModuleOne: boom}}
	reg := registrytest.NewRegistry(t, loader)

	var (
		mu       sync.Mutex
		reported []error
	)
	s := New(reg, WithErrorHandler(func(key registry.ModuleKey, err error) {
		mu.Lock()
		defer mu.Unlock()
		if key != registry.ModuleOne {
			t.Errorf("reported key = %q, want %q", key, registry.ModuleOne)
		}
		reported = append(reported, err)
	}))
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleOne)
	state := waitSettled(t, s)
	if state.Phase != PhaseEmpty || len(state.Actions) != 0 {
		t.Fatalf("State() = %+v, want empty", state)
	}
	s.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || !registry.IsActionLoadError(reported[0]) || !errors.Is(reported[0], boom) {
		t.Fatalf("reported = %v, want one action load error wrapping %v", reported, boom)
	}
	if got := renderView(t, state, ""); !strings.Contains(got, "Select a module to see available actions (e.g., dashboard or view).") {
		t.Fatalf("empty view = %q", got)
	}
}

func TestZeroActionsSettleEmpty(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: map[registry.ModuleKey][]registry.Action{registry.ModuleTwo: {}}}
	s := New(registrytest.NewRegistry(t, loader))
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleTwo)
	if state := waitSettled(t, s); state.Phase != PhaseEmpty {
		t.Fatalf("Phase = %v, want %v", state.Phase, PhaseEmpty)
	}
}

func TestHomeClearsWithoutFetching(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	s := New(registrytest.NewRegistry(t, loader))
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleOne)
	waitSettled(t, s)
	s.SetModule(context.Background(), registry.Home)
	state := waitSettled(t, s)
	if state.Phase != PhaseIdle || len(state.Actions) != 0 || state.Module != registry.Home {
		t.Fatalf("State() = %+v, want idle home", state)
	}
	if got := loader.ActionCalls(registry.ModuleOne); got != 1 {
		t.Fatalf("ActionCalls(module-one) = %d, want 1", got)
	}
	if got := loader.ActionCalls(registry.Home); got != 0 {
		t.Fatalf("ActionCalls(home) = %d, want 0", got)
	}
}

func TestSameModuleIsNoOp(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{Actions: registrytest.SampleActions()}
	s := New(registrytest.NewRegistry(t, loader))
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleTwo)
	s.SetModule(context.Background(), registry.ModuleTwo)
	waitSettled(t, s)
	s.SetModule(context.Background(), registry.ModuleTwo)
	waitSettled(t, s)
	if got := loader.ActionCalls(registry.ModuleTwo); got != 1 {
		t.Fatalf("ActionCalls(module-two) = %d, want 1", got)
	}
}

// releaseLoader ignores cancellation so stale results really arrive late.
type releaseLoader struct {
	actions map[registry.ModuleKey][]registry.Action
	release map[registry.ModuleKey]chan struct{}
}

func (l *releaseLoader) LoadActionsForModule(_ context.Context, key registry.ModuleKey) ([]registry.Action, error) {
	<-l.release[key]
	return l.actions[key], nil
}

func TestSwitchingModulesDiscardsStaleResult(t *testing.T) {
	t.Parallel()

	loader := &releaseLoader{
		actions: registrytest.SampleActions(),
		release: map[registry.ModuleKey]chan struct{}{
			registry.ModuleOne: make(chan struct{}),
			registry.ModuleTwo: make(chan struct{}),
		},
	}
	s := New(loader)
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleOne)
	s.SetModule(context.Background(), registry.ModuleTwo)
	if state := s.State(); state.Phase != PhaseLoading || state.Module != registry.ModuleTwo {
		t.Fatalf("State() = %+v, want module-two loading", state)
	}

	close(loader.release[registry.ModuleTwo])
	state := waitSettled(t, s)
	if state.Module != registry.ModuleTwo || state.Phase != PhaseLoaded || state.Actions[0].Label != "Add Card" {
		t.Fatalf("State() = %+v, want module-two actions", state)
	}

	close(loader.release[registry.ModuleOne])
	s.wg.Wait()
	state = s.State()
	if state.Module != registry.ModuleTwo || state.Actions[0].Slug != "add-card" {
		t.Fatalf("stale module-one result applied: %+v", state)
	}
}

func TestSwitchingModulesCancelsPreviousFetch(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{
		Actions: registrytest.SampleActions(),
		Gates:   map[registry.ModuleKey]chan struct{}{registry.ModuleOne: make(chan struct{})},
	}
	s := New(registrytest.NewRegistry(t, loader))
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleOne)
	s.SetModule(context.Background(), registry.ModuleTwo)
	state := waitSettled(t, s)
	if state.Module != registry.ModuleTwo || state.Phase != PhaseLoaded {
		t.Fatalf("State() = %+v, want module-two loaded", state)
	}
	// The gated module-one fetch returns only because its context was cancelled.
	s.wg.Wait()
	if state := s.State(); state.Module != registry.ModuleTwo {
		t.Fatalf("State().Module = %q, want %q", state.Module, registry.ModuleTwo)
	}
}

func TestCloseDuringPendingFetch(t *testing.T) {
	t.Parallel()

	loader := &registrytest.Loader{
		Actions: registrytest.SampleActions(),
		Gates:   map[registry.ModuleKey]chan struct{}{registry.ModuleOne: make(chan struct{})},
	}
	s := New(registrytest.NewRegistry(t, loader))

	s.SetModule(context.Background(), registry.ModuleOne)
	s.Close()
	s.wg.Wait()

	if state := s.State(); state.Phase != PhaseIdle || len(state.Actions) != 0 {
		t.Fatalf("State() after Close = %+v, want idle", state)
	}
	if err := s.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Wait() after Close = %v, want %v", err, ErrClosed)
	}
	s.SetModule(context.Background(), registry.ModuleTwo)
	if got := loader.ActionCalls(registry.ModuleTwo); got != 0 {
		t.Fatalf("ActionCalls(module-two) after Close = %d, want 0", got)
	}
	s.Close()
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	loader := &registrytest.Loader{Gates: map[registry.ModuleKey]chan struct{}{registry.ModuleOne: gate}}
	s := New(registrytest.NewRegistry(t, loader))
	defer s.Close()

	s.SetModule(context.Background(), registry.ModuleOne)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() = %v, want %v", err, context.DeadlineExceeded)
	}
	if got := renderView(t, s.State(), ""); !strings.Contains(got, "Loading actions...") {
		t.Fatalf("loading view = %q", got)
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	for phase, want := range map[Phase]string{PhaseIdle: "idle", PhaseLoading: "loading", PhaseLoaded: "loaded", PhaseEmpty: "empty", Phase(9): "unknown"} {
		if got := phase.String(); got != want {
			t.Fatalf("Phase(%d).String() = %q, want %q", int(phase), got, want)
		}
	}
}
