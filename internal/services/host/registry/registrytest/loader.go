// Package registrytest provides a configurable in-memory remote loader for
// host package tests.
package registrytest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
)

// Loader implements registry.RemoteLoader with canned responses and call
// tracking. Gates block action loads for a key until the channel is closed.
type Loader struct {
	Actions       map[registry.ModuleKey][]registry.Action
	ActionErrs    map[registry.ModuleKey]error
	Fragments     map[registry.ModuleKey]string
	ComponentErrs map[registry.ModuleKey]error
	Gates         map[registry.ModuleKey]chan struct{}

	mu             sync.Mutex
	actionCalls    map[registry.ModuleKey]int
	componentCalls map[registry.ModuleKey]int
	subpaths       []string
}

// LoadActions returns the canned actions for key after its gate opens.
func (l *Loader) LoadActions(ctx context.Context, key registry.ModuleKey) ([]registry.Action, error) {
	l.mu.Lock()
	if l.actionCalls == nil {
		l.actionCalls = map[registry.ModuleKey]int{}
	}
	l.actionCalls[key]++
	gate := l.Gates[key]
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := l.ActionErrs[key]; err != nil {
		return nil, err
	}
	actions := l.Actions[key]
	out := make([]registry.Action, len(actions))
	copy(out, actions)
	return out, nil
}

// LoadComponent returns the canned fragment for key as a raw component.
func (l *Loader) LoadComponent(_ context.Context, key registry.ModuleKey, subpath string) (templ.Component, error) {
	l.mu.Lock()
	if l.componentCalls == nil {
		l.componentCalls = map[registry.ModuleKey]int{}
	}
	l.componentCalls[key]++
	l.subpaths = append(l.subpaths, subpath)
	l.mu.Unlock()

	if err := l.ComponentErrs[key]; err != nil {
		return nil, err
	}
	fragment, ok := l.Fragments[key]
	if !ok {
		fragment = fmt.Sprintf(`<div data-remote=%q></div>`, key)
	}
	return templ.Raw(fragment), nil
}

// ActionCalls returns how many action loads were issued for key.
func (l *Loader) ActionCalls(key registry.ModuleKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.actionCalls[key]
}

// ComponentCalls returns how many component loads were issued for key.
func (l *Loader) ComponentCalls(key registry.ModuleKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.componentCalls[key]
}

// Subpaths returns every sub-path passed to LoadComponent in call order.
func (l *Loader) Subpaths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.subpaths))
	copy(out, l.subpaths)
	return out
}

// NewRegistry builds the default module table over loader.
func NewRegistry(t testing.TB, loader *Loader) *registry.Registry {
	t.Helper()
	reg, err := registry.Default(loader)
	if err != nil {
		t.Fatalf("registry.Default() error = %v", err)
	}
	return reg
}

// SampleActions mirrors the action lists published by the reference remotes.
func SampleActions() map[registry.ModuleKey][]registry.Action {
	return map[registry.ModuleKey][]registry.Action{
		registry.ModuleOne: {
			{Label: "Sort Users", Slug: "sort-users"},
			{Label: "Insert User", Slug: "insert-user"},
		},
		registry.ModuleTwo: {
			{Label: "Add Card", Slug: "add-card"},
			{Label: "Archive Board", Slug: "archive-board"},
		},
	}
}
