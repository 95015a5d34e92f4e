package sidebar

import (
	"github.com/a-h/templ"
	"github.com/louisbranch/mfhost/internal/services/host/navigation"
	hosti18n "github.com/louisbranch/mfhost/internal/services/host/platform/i18n"
	"github.com/louisbranch/mfhost/internal/services/host/templates"
)

// Item is one action entry as rendered by the sidebar.
type Item struct {
	Label  string
	Slug   string
	Href   string
	Active bool
}

// Items maps loaded actions to navigable entries. Only the entry whose slug
// equals currentAction is active.
func Items(state State, currentAction string) []Item {
	if state.Phase != PhaseLoaded {
		return nil
	}
	items := make([]Item, 0, len(state.Actions))
	for _, action := range state.Actions {
		items = append(items, Item{
			Label:  action.Label,
			Slug:   action.Slug,
			Href:   navigation.ActionPath(state.Module, action.Slug),
			Active: currentAction != "" && action.Slug == currentAction,
		})
	}
	return items
}

// View renders the sidebar content for state under the public base path.
func View(loc hosti18n.ShellCopy, base string, state State, currentAction string) templ.Component {
	switch state.Phase {
	case PhaseLoading:
		return templates.SidebarLoading(loc)
	case PhaseLoaded:
		items := Items(state, currentAction)
		rendered := make([]templates.SidebarItem, 0, len(items))
		for _, item := range items {
			rendered = append(rendered, templates.SidebarItem{
				Label:  item.Label,
				Href:   templates.Path(base, item.Href),
				Active: item.Active,
			})
		}
		return templates.SidebarList(loc, rendered)
	default:
		return templates.SidebarIdle(loc)
	}
}
