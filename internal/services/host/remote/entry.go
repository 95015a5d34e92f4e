package remote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"
)

const (
	// ExposeApp is the exposed root component.
	ExposeApp = "./App"
	// ExposeActions is the exposed action list.
	ExposeActions = "./actions"
)

// Entry is a parsed remote entry manifest.
type Entry struct {
	Name    string
	Version string
	Exposes map[string]string
	Shared  map[string]string
}

func parseEntry(body []byte) (Entry, error) {
	if !gjson.ValidBytes(body) {
		return Entry{}, errors.New("entry is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Entry{}, errors.New("entry must be a JSON object")
	}
	entry := Entry{
		Name:    strings.TrimSpace(root.Get("name").String()),
		Version: strings.TrimSpace(root.Get("version").String()),
		Exposes: map[string]string{},
		Shared:  map[string]string{},
	}
	if entry.Name == "" {
		return Entry{}, errors.New("entry name is required")
	}
	root.Get("exposes").ForEach(func(key, value gjson.Result) bool {
		if path := strings.TrimSpace(value.String()); path != "" {
			entry.Exposes[key.String()] = path
		}
		return true
	})
	root.Get("shared").ForEach(func(key, value gjson.Result) bool {
		version := value.String()
		if value.IsObject() {
			version = value.Get("version").String()
		}
		entry.Shared[key.String()] = strings.TrimSpace(version)
		return true
	})
	return entry, nil
}

// resolve returns the absolute URL of an exposed module.
func (e Entry) resolve(base *url.URL, expose string) (*url.URL, bool) {
	path, ok := e.Exposes[expose]
	if !ok || base == nil {
		return nil, false
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}

// checkShared verifies every library shared by both host and remote agrees
// on the semver major version.
func checkShared(host, remote map[string]string) error {
	for name, hostVersion := range host {
		remoteVersion, ok := remote[name]
		if !ok {
			continue
		}
		hostMajor := semver.Major(canonicalVersion(hostVersion))
		remoteMajor := semver.Major(canonicalVersion(remoteVersion))
		if remoteMajor == "" {
			return fmt.Errorf("shared %s: invalid remote version %q", name, remoteVersion)
		}
		if hostMajor != remoteMajor {
			return fmt.Errorf("shared %s: remote %s incompatible with host %s", name, remoteVersion, hostVersion)
		}
	}
	return nil
}

func canonicalVersion(version string) string {
	version = strings.TrimLeft(strings.TrimSpace(version), "^~=v")
	if version == "" {
		return ""
	}
	return semver.Canonical("v" + version)
}
