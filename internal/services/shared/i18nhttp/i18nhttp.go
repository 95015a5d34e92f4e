// Package i18nhttp picks the language of a host response.
//
// An explicit ?lang= choice wins and is remembered in a cookie; after that
// come the cookie itself, then Accept-Language, then the base locale.
package i18nhttp

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	platformi18n "github.com/louisbranch/mfhost/internal/platform/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "mfhost_lang"

	langCookieMaxAge = 365 * 24 * time.Hour
)

// LanguageOption is one entry of the language switcher.
type LanguageOption struct {
	Tag    language.Tag
	Label  string
	Active bool
}

// Printer returns a catalog printer for tag, falling back to the base locale
// for unsupported tags.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(NormalizeTag(tag.String()))
}

// ResolveTag picks the response language. persist reports that the choice
// came from the query string and should be stored with SetLanguageCookie.
func ResolveTag(r *http.Request) (tag language.Tag, persist bool) {
	if r == nil {
		return platformi18n.DefaultTag(), false
	}
	if value := r.URL.Query().Get(LangParam); strings.TrimSpace(value) != "" {
		if tag, ok := platformi18n.ParseTag(value); ok {
			return tag, true
		}
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := platformi18n.ParseTag(cookie.Value); ok {
			return tag, false
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		return platformi18n.MatchTags(tags), false
	}
	return platformi18n.DefaultTag(), false
}

// SetLanguageCookie remembers tag for later requests.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int(langCookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// NormalizeTag maps value onto a supported tag, or the base locale.
func NormalizeTag(value string) language.Tag {
	tag, _ := platformi18n.ParseTag(value)
	return tag
}

// LanguageOptions lists every supported language with active marked. label
// names each tag; an empty label falls back to the tag itself.
func LanguageOptions(active language.Tag, label func(language.Tag) string) []LanguageOption {
	active = NormalizeTag(active.String())
	supported := platformi18n.SupportedTags()
	options := make([]LanguageOption, 0, len(supported))
	for _, tag := range supported {
		name := tag.String()
		if label != nil {
			if got := strings.TrimSpace(label(tag)); got != "" {
				name = got
			}
		}
		options = append(options, LanguageOption{Tag: tag, Label: name, Active: tag == active})
	}
	return options
}

// LanguageURL returns path with its query's lang parameter set to tag.
func LanguageURL(path, rawQuery string, tag language.Tag) string {
	if strings.TrimSpace(path) == "" {
		path = "/"
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	query.Set(LangParam, tag.String())
	return (&url.URL{Path: path, RawQuery: query.Encode()}).String()
}

// LanguageKeyLabel returns the shell catalog key naming tag, e.g.
// "shell.lang_pt_br".
func LanguageKeyLabel(tag language.Tag) string {
	return "shell.lang_" + strings.ToLower(strings.ReplaceAll(tag.String(), "-", "_"))
}
