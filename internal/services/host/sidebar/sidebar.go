// Package sidebar tracks which actions the sidebar shows for the current
// module.
//
// A Sidebar moves between four phases. Home (or no module) is Idle. Selecting
// a remote module enters Loading and starts one fetch; the fetch settles into
// Loaded when it returns at least one action and into Empty otherwise,
// failures included. Every selection bumps a generation counter and cancels
// the previous fetch, so a result that arrives after a newer selection is
// dropped instead of overwriting it.
package sidebar

import (
	"context"
	"errors"
	"sync"

	"github.com/louisbranch/mfhost/internal/services/host/registry"
)

// ErrClosed is returned by Wait once the sidebar has been closed.
var ErrClosed = errors.New("sidebar closed")

// Phase is the sidebar lifecycle phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseEmpty
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Loader fetches the action list for a module.
type Loader interface {
	LoadActionsForModule(ctx context.Context, key registry.ModuleKey) ([]registry.Action, error)
}

// State is a snapshot of the sidebar.
type State struct {
	Module  registry.ModuleKey
	Phase   Phase
	Actions []registry.Action
}

// Option configures a Sidebar.
type Option func(*Sidebar)

// WithErrorHandler reports failed loads of the current module. Stale and
// cancelled loads are not reported.
func WithErrorHandler(fn func(key registry.ModuleKey, err error)) Option {
	return func(s *Sidebar) {
		s.onError = fn
	}
}

// Sidebar owns the action list for one navigation session.
type Sidebar struct {
	loader  Loader
	onError func(registry.ModuleKey, error)

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	settled chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// New returns an idle sidebar backed by loader.
func New(loader Loader, opts ...Option) *Sidebar {
	s := &Sidebar{loader: loader, state: State{Module: registry.Home, Phase: PhaseIdle}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SetModule selects the module whose actions the sidebar shows. Home clears
// the list without fetching. Reselecting the module already shown is a no-op.
func (s *Sidebar) SetModule(ctx context.Context, key registry.ModuleKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if key == "" {
		key = registry.Home
	}
	if key == s.state.Module && s.state.Phase != PhaseIdle {
		return
	}

	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if key == registry.Home || s.loader == nil {
		s.state = State{Module: key, Phase: PhaseIdle}
		s.settled = nil
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	settled := make(chan struct{})
	s.cancel = cancel
	s.settled = settled
	s.state = State{Module: key, Phase: PhaseLoading}

	s.wg.Add(1)
	go s.fetch(fetchCtx, s.gen, key, settled)
}

func (s *Sidebar) fetch(ctx context.Context, gen uint64, key registry.ModuleKey, settled chan struct{}) {
	defer s.wg.Done()
	defer close(settled)

	actions, err := s.loader.LoadActionsForModule(ctx, key)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	next := State{Module: key, Phase: PhaseEmpty}
	if err == nil && len(actions) > 0 {
		next.Phase = PhaseLoaded
		next.Actions = actions
	}
	s.state = next
	onError := s.onError
	s.mu.Unlock()

	if err != nil && onError != nil {
		onError(key, err)
	}
}

// State returns a snapshot of the current sidebar state.
func (s *Sidebar) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if len(s.state.Actions) > 0 {
		out.Actions = make([]registry.Action, len(s.state.Actions))
		copy(out.Actions, s.state.Actions)
	}
	return out
}

// Wait blocks until the current selection settles or ctx is done.
func (s *Sidebar) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if s.state.Phase != PhaseLoading || s.settled == nil {
			s.mu.Unlock()
			return nil
		}
		settled := s.settled
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels any pending load and discards its result.
func (s *Sidebar) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = State{Module: registry.Home, Phase: PhaseIdle}
	s.settled = nil
}
