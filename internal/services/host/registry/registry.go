// Package registry owns the static table that maps module keys to remote
// loaders and route prefixes.
//
// The table is built once at process start and never mutated afterwards, so
// concurrent readers need no synchronization.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"
)

// ModuleKey identifies a navigable module. Home is host-local and never has a
// registry entry.
type ModuleKey string

const (
	// Home is the landing pseudo-module rendered by the host itself.
	Home ModuleKey = "home"
	// ModuleOne is the first remote module.
	ModuleOne ModuleKey = "module-one"
	// ModuleTwo is the second remote module.
	ModuleTwo ModuleKey = "module-two"
)

// String returns the key as it appears in URL paths.
func (k ModuleKey) String() string { return string(k) }

// Action is a labeled, slug-identified operation offered by a remote module.
type Action struct {
	Label string
	Slug  string
}

// ComponentLoader fetches the root UI component of a remote module for the
// given sub-path beneath its prefix.
type ComponentLoader func(ctx context.Context, subpath string) (templ.Component, error)

// ActionsLoader fetches the ordered action list declared by a remote module.
type ActionsLoader func(ctx context.Context) ([]Action, error)

// ModuleConfig describes one remote module entry.
type ModuleConfig struct {
	Key       ModuleKey
	Label     string
	Path      string
	Component ComponentLoader
	Actions   ActionsLoader
}

// Registry is an immutable, ordered module table.
type Registry struct {
	entries []ModuleConfig
	index   map[ModuleKey]int
}

// New validates configs and freezes them into a registry. Declaration order
// is the resolution order.
func New(configs ...ModuleConfig) (*Registry, error) {
	reg := &Registry{
		entries: make([]ModuleConfig, 0, len(configs)),
		index:   make(map[ModuleKey]int, len(configs)),
	}
	for _, cfg := range configs {
		key := ModuleKey(strings.TrimSpace(string(cfg.Key)))
		if key == "" {
			return nil, fmt.Errorf("module key is required")
		}
		if key == Home {
			return nil, fmt.Errorf("module key %q is reserved for the host", Home)
		}
		if _, ok := reg.index[key]; ok {
			return nil, fmt.Errorf("module %q is registered twice", key)
		}
		if cfg.Component == nil {
			return nil, fmt.Errorf("module %q: component loader is required", key)
		}
		if cfg.Actions == nil {
			return nil, fmt.Errorf("module %q: actions loader is required", key)
		}
		path := normalizePath(cfg.Path)
		if path == "" {
			return nil, fmt.Errorf("module %q: path is required", key)
		}
		for _, existing := range reg.entries {
			if strings.HasPrefix(path, existing.Path) || strings.HasPrefix(existing.Path, path) {
				return nil, fmt.Errorf("module %q path %q overlaps module %q path %q", key, path, existing.Key, existing.Path)
			}
		}
		label := strings.TrimSpace(cfg.Label)
		if label == "" {
			label = string(key)
		}
		reg.index[key] = len(reg.entries)
		reg.entries = append(reg.entries, ModuleConfig{
			Key:       key,
			Label:     label,
			Path:      path,
			Component: cfg.Component,
			Actions:   cfg.Actions,
		})
	}
	return reg, nil
}

// Keys returns remote module keys in declaration order.
func (r *Registry) Keys() []ModuleKey {
	if r == nil {
		return nil
	}
	keys := make([]ModuleKey, 0, len(r.entries))
	for _, entry := range r.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// Entries returns a copy of the module table in declaration order.
func (r *Registry) Entries() []ModuleConfig {
	if r == nil {
		return nil
	}
	out := make([]ModuleConfig, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the config registered for key.
func (r *Registry) Lookup(key ModuleKey) (ModuleConfig, bool) {
	if r == nil {
		return ModuleConfig{}, false
	}
	idx, ok := r.index[key]
	if !ok {
		return ModuleConfig{}, false
	}
	return r.entries[idx], true
}

// IsRemote reports whether key has a registry entry.
func (r *Registry) IsRemote(key ModuleKey) bool {
	_, ok := r.Lookup(key)
	return ok
}

// Label returns the display label for key. Home and unknown keys yield "".
func (r *Registry) Label(key ModuleKey) string {
	cfg, ok := r.Lookup(key)
	if !ok {
		return ""
	}
	return cfg.Label
}

// ResolveModuleForPath returns the first module, in declaration order, whose
// path is a prefix of the given URL path. Paths matching no module resolve to
// Home.
func (r *Registry) ResolveModuleForPath(path string) ModuleKey {
	if r == nil {
		return Home
	}
	for _, entry := range r.entries {
		if strings.HasPrefix(path, entry.Path) {
			return entry.Key
		}
	}
	return Home
}

// LoadActionsForModule invokes the actions loader registered for key.
func (r *Registry) LoadActionsForModule(ctx context.Context, key ModuleKey) ([]Action, error) {
	cfg, ok := r.Lookup(key)
	if !ok {
		return nil, &ModuleLoadError{Module: key, Op: OpActions, Err: ErrUnknownModule}
	}
	actions, err := cfg.Actions(ctx)
	if err != nil {
		return nil, &ModuleLoadError{Module: key, Op: OpActions, Err: err}
	}
	return actions, nil
}

// LoadComponent invokes the component loader registered for key.
func (r *Registry) LoadComponent(ctx context.Context, key ModuleKey, subpath string) (templ.Component, error) {
	cfg, ok := r.Lookup(key)
	if !ok {
		return nil, &ModuleLoadError{Module: key, Op: OpComponent, Err: ErrUnknownModule}
	}
	component, err := cfg.Component(ctx, subpath)
	if err != nil {
		return nil, &ModuleLoadError{Module: key, Op: OpComponent, Err: err}
	}
	if component == nil {
		return nil, &ModuleLoadError{Module: key, Op: OpComponent, Err: fmt.Errorf("loader returned no component")}
	}
	return component, nil
}

func normalizePath(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	return "/" + path
}
