package remote

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// newFragmentPolicy allows user-content markup plus the attributes remote
// views need to drive htmx interactions. Scripts never survive.
func newFragmentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("section", "header", "footer", "nav", "main", "article", "aside",
		"form", "button", "input", "label", "select", "option", "textarea", "fieldset", "legend")
	policy.AllowAttrs("class", "id", "role", "title", "aria-label", "aria-current", "aria-hidden").Globally()
	policy.AllowAttrs("type", "name", "value", "placeholder", "for", "disabled", "checked", "selected", "required").
		OnElements("button", "input", "label", "select", "option", "textarea")
	policy.AllowAttrs("hx-get", "hx-post", "hx-target", "hx-swap", "hx-trigger", "hx-select", "hx-push-url", "hx-vals").Globally()
	policy.AllowAttrs("action", "method").OnElements("form")
	policy.AllowDataAttributes()
	return policy
}

// prepareFragment sanitizes a remote root fragment and rebases its asset URLs
// onto the URL it was served from.
func prepareFragment(body string, base *url.URL, policy *bluemonday.Policy) (string, error) {
	if policy != nil {
		body = policy.Sanitize(body)
	}
	if base == nil {
		return body, nil
	}
	return rebaseAssets(body, base)
}

func rebaseAssets(fragment string, base *url.URL) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	var b strings.Builder
	for _, node := range nodes {
		rebaseNode(node, base)
		if err := html.Render(&b, node); err != nil {
			return "", fmt.Errorf("render fragment: %w", err)
		}
	}
	return b.String(), nil
}

func rebaseNode(node *html.Node, base *url.URL) {
	if node.Type == html.ElementNode {
		for i, attr := range node.Attr {
			if isAssetAttr(node.DataAtom, attr.Key) {
				node.Attr[i].Val = resolveAsset(base, attr.Val)
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		rebaseNode(child, base)
	}
}

func isAssetAttr(element atom.Atom, key string) bool {
	switch key {
	case "src", "poster":
		return true
	case "href":
		return element == atom.Link
	default:
		return false
	}
}

func resolveAsset(base *url.URL, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "data:") {
		return value
	}
	ref, err := url.Parse(trimmed)
	if err != nil || ref.IsAbs() {
		return value
	}
	return base.ResolveReference(ref).String()
}
