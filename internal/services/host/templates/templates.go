// Package templates renders the host chrome as templ components. The
// .templ sources are compiled with `templ generate`.
package templates

import (
	"strings"

	"github.com/a-h/templ"
	hosti18n "github.com/louisbranch/mfhost/internal/services/host/platform/i18n"
)

const (
	// ShellID is the swap target for in-app navigation.
	ShellID = "host-shell"
	// RegionID is the swap target for region retries.
	RegionID = "host-region"
	// SidebarID identifies the sidebar slot.
	SidebarID = "host-sidebar"
)

// NavLink is one header navigation entry.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// LanguageLink is one language switcher entry.
type LanguageLink struct {
	Label  string
	Href   string
	Active bool
}

// SidebarItem is one rendered action button.
type SidebarItem struct {
	Label  string
	Href   string
	Active bool
}

// ShellOptions describes one rendering of the host chrome.
type ShellOptions struct {
	Copy      hosti18n.ShellCopy
	Base      string
	Module    string
	Nav       []NavLink
	Languages []LanguageLink
	Sidebar   templ.Component
	Region    templ.Component
}

// LayoutOptions wraps the shell in a full document.
type LayoutOptions struct {
	Shell   ShellOptions
	HTMXSrc string
}

// Path joins a public base path with a host-relative path.
func Path(base string, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
