// Package navigation derives the host navigation state from a URL path.
//
// Every function here is pure: the state is recomputed from the path on each
// request and never stored.
package navigation

import (
	"net/url"
	"strings"

	"github.com/louisbranch/mfhost/internal/services/host/registry"
)

// Resolver is the registry surface navigation needs.
type Resolver interface {
	ResolveModuleForPath(path string) registry.ModuleKey
	IsRemote(key registry.ModuleKey) bool
}

// State is the navigation state derived from one URL path. Action is only
// meaningful when Module is not Home.
type State struct {
	Module registry.ModuleKey
	Action string
}

// IsHome reports whether the state points at the host landing page.
func (s State) IsHome() bool {
	return s.Module == registry.Home || s.Module == ""
}

// Derive computes module and action for path.
func Derive(resolver Resolver, path string) State {
	return State{
		Module: CurrentModule(resolver, path),
		Action: CurrentAction(resolver, path),
	}
}

// CurrentModule returns the module owning path, or Home.
func CurrentModule(resolver Resolver, path string) registry.ModuleKey {
	if resolver == nil {
		return registry.Home
	}
	return resolver.ResolveModuleForPath(path)
}

// CurrentAction returns the second path segment when the first names a
// remote module, and "" otherwise.
func CurrentAction(resolver Resolver, path string) string {
	if resolver == nil {
		return ""
	}
	parts := Segments(path)
	if len(parts) < 2 {
		return ""
	}
	if !resolver.IsRemote(registry.ModuleKey(parts[0])) {
		return ""
	}
	return parts[1]
}

// Segments splits path on "/" and drops empty segments.
func Segments(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// ModulePath returns the landing path for key.
func ModulePath(key registry.ModuleKey) string {
	if key == registry.Home || key == "" {
		return "/"
	}
	return "/" + string(key)
}

// ActionPath returns the navigation target for an action of key.
func ActionPath(key registry.ModuleKey, slug string) string {
	return ModulePath(key) + "/" + url.PathEscape(slug)
}

// Subpath returns the part of path beneath the module prefix, always rooted
// at "/" so remotes can route on it.
func Subpath(key registry.ModuleKey, path string) string {
	prefix := ModulePath(key)
	rest := strings.TrimPrefix(path, prefix)
	if rest == path && key != registry.Home {
		return "/"
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}
