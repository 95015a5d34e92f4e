// Package catalog embeds the host message catalogs and registers them with
// x/text/message when the package loads.
//
// Catalogs live at locales/<locale>/<namespace>.yaml. Every key is prefixed
// by its namespace, and every key a translation defines must also exist in
// the base locale.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every catalog key must be defined in.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embedded embed.FS

// Messages maps a locale to its catalog keys and messages.
type Messages map[string]map[string]string

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

var loaded = mustRegister()

func mustRegister() Messages {
	messages, err := Load(embedded)
	if err != nil {
		panic(err)
	}
	if err := messages.Register(); err != nil {
		panic(err)
	}
	return messages
}

// Locales returns the embedded locales, base locale first.
func Locales() []string {
	return loaded.Locales()
}

// Load reads and validates every catalog under locales/ in fsys.
func Load(fsys fs.FS) (Messages, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}

	messages := Messages{}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := messages.add(p, file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}

	base, ok := messages[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for locale, keys := range messages {
		for key := range keys {
			if _, ok := base[key]; !ok {
				return nil, fmt.Errorf("locale %s: key %q is missing from %s", locale, key, BaseLocale)
			}
		}
	}
	return messages, nil
}

func (m Messages) add(p string, file catalogFile) error {
	locale := path.Base(path.Dir(p))
	namespace := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if got := strings.TrimSpace(file.Locale); got != locale {
		return fmt.Errorf("locale %q must match path locale %q", got, locale)
	}
	if got := strings.TrimSpace(file.Namespace); got != namespace {
		return fmt.Errorf("namespace %q must match filename %q", got, namespace)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("messages are required")
	}

	keys, ok := m[locale]
	if !ok {
		keys = map[string]string{}
		m[locale] = keys
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, namespace+".") {
			return fmt.Errorf("key %q must be prefixed by namespace %q", key, namespace)
		}
		keys[key] = value
	}
	return nil
}

// Locales returns the loaded locales, base locale first and the rest sorted.
func (m Messages) Locales() []string {
	out := make([]string, 0, len(m))
	for locale := range m {
		if locale != BaseLocale {
			out = append(out, locale)
		}
	}
	sort.Strings(out)
	if _, ok := m[BaseLocale]; ok {
		out = append([]string{BaseLocale}, out...)
	}
	return out
}

// Register installs every message in the x/text/message default catalog,
// under its locale and that locale's base language.
func (m Messages) Register() error {
	for _, locale := range m.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, confidence := tag.Base(); confidence != language.No {
			if baseTag := language.Make(base.String()); baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range m[locale] {
			for _, t := range tags {
				if err := message.SetString(t, key, value); err != nil {
					return fmt.Errorf("register %s %q: %w", t, key, err)
				}
			}
		}
	}
	return nil
}
