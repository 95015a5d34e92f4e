package remote

import (
	"fmt"
	"net/url"
	"strings"
)

// Reference locates one remote: its federation scope and entry manifest URL,
// written as "scope@url".
type Reference struct {
	Scope    string
	EntryURL *url.URL
}

// String renders the reference in "scope@url" form.
func (r Reference) String() string {
	if r.EntryURL == nil {
		return r.Scope
	}
	return r.Scope + "@" + r.EntryURL.String()
}

// ParseReference parses "scope@url". The URL must be absolute http(s).
func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	scope, rawURL, ok := strings.Cut(raw, "@")
	if !ok {
		return Reference{}, fmt.Errorf("remote reference %q: want scope@url", raw)
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return Reference{}, fmt.Errorf("remote reference %q: scope is required", raw)
	}
	entryURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Reference{}, fmt.Errorf("remote reference %q: %w", raw, err)
	}
	if entryURL.Scheme != "http" && entryURL.Scheme != "https" {
		return Reference{}, fmt.Errorf("remote reference %q: url must be http or https", raw)
	}
	if entryURL.Host == "" {
		return Reference{}, fmt.Errorf("remote reference %q: url host is required", raw)
	}
	return Reference{Scope: scope, EntryURL: entryURL}, nil
}
