package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/tidwall/gjson"
)

// droppedAction records an action entry the host could not render.
type droppedAction struct {
	index  int
	reason string
}

// parseActions accepts a bare array or an {"actions": [...]} envelope.
// Entries without a label or slug are dropped, as are later repeats of a
// slug, since the slug is the navigation target. Dropped entries are
// returned so the caller can report them.
func parseActions(body []byte) ([]registry.Action, []droppedAction, error) {
	if !gjson.ValidBytes(body) {
		return nil, nil, errors.New("actions payload is not valid JSON")
	}
	list := gjson.ParseBytes(body)
	if list.IsObject() {
		list = list.Get("actions")
	}
	if !list.IsArray() {
		return nil, nil, errors.New("actions payload must be an array")
	}
	items := list.Array()
	actions := make([]registry.Action, 0, len(items))
	var dropped []droppedAction
	seen := make(map[string]int, len(items))
	for i, item := range items {
		label := strings.TrimSpace(item.Get("label").String())
		slug := strings.TrimSpace(item.Get("slug").String())
		switch {
		case label == "":
			dropped = append(dropped, droppedAction{index: i, reason: "missing label"})
			continue
		case slug == "":
			dropped = append(dropped, droppedAction{index: i, reason: "missing slug"})
			continue
		}
		if first, ok := seen[slug]; ok {
			dropped = append(dropped, droppedAction{index: i, reason: fmt.Sprintf("slug %q repeats entry %d", slug, first)})
			continue
		}
		seen[slug] = i
		actions = append(actions, registry.Action{Label: label, Slug: slug})
	}
	return actions, dropped, nil
}
