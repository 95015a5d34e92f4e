// Package i18n builds localized copy for the host chrome.
package i18n

import (
	"fmt"
	"strings"

	"github.com/louisbranch/mfhost/internal/services/shared/i18nhttp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ShellCopy holds translatable copy for the host chrome.
type ShellCopy struct {
	Lang           string
	Title          string
	NavLabel       string
	Home           string
	LoadingModule  string
	LoadingActions string
	SidebarHint    string
	SidebarHeading string
	Retry          string
	printer        *message.Printer
}

// Shell returns localized shell copy for the provided language tag.
func Shell(tag language.Tag) ShellCopy {
	tag = i18nhttp.NormalizeTag(tag.String())
	loc := i18nhttp.Printer(tag)
	return ShellCopy{
		Lang:           tag.String(),
		Title:          localizeWithFallback(loc, "shell.title", "Micro-Frontend Host"),
		NavLabel:       localizeWithFallback(loc, "shell.nav_label", "Modules"),
		Home:           localizeWithFallback(loc, "shell.home", "Home"),
		LoadingModule:  localizeWithFallback(loc, "shell.loading_module", "Loading module..."),
		LoadingActions: localizeWithFallback(loc, "shell.loading_actions", "Loading actions..."),
		SidebarHint:    localizeWithFallback(loc, "shell.sidebar_hint", "Select a module to see available actions (e.g., dashboard or view)."),
		SidebarHeading: localizeWithFallback(loc, "shell.sidebar_heading", "Module actions"),
		Retry:          localizeWithFallback(loc, "shell.retry", "Retry"),
		printer:        loc,
	}
}

// LoadFailed renders the failure boundary message for a module label.
func (c ShellCopy) LoadFailed(label string) string {
	return localizeWithFallback(c.printer, "shell.load_failed", "%s failed to load.", label)
}

// Text looks up an arbitrary catalog key, returning fallback when missing.
func (c ShellCopy) Text(key string, fallback string) string {
	return localizeWithFallback(c.printer, key, fallback)
}

func localizeWithFallback(loc *message.Printer, key string, fallback string, args ...any) string {
	if loc != nil {
		// A missing key formats as itself.
		value := strings.TrimSpace(loc.Sprintf(key, args...))
		if value != "" && value != fmt.Sprintf(key, args...) {
			return value
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(fallback, args...)
	}
	return fallback
}
