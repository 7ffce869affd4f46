// Package locale holds the bot's user-facing texts as embedded go-i18n bundles.
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localedata embed.FS

// Supported languages.
const (
	Fa = "fa"
	En = "en"
)

// Localizer resolves message keys for one language.
type Localizer interface {
	Lang() string
	MustLocalize(id string) string
	// MustLocalizeWithTemplate fills {{.f1}}, {{.f2}}, ... with fields in order.
	MustLocalizeWithTemplate(id string, fields ...string) string
}

type localizer struct {
	lang string
	*i18n.Localizer
}

// NewBundle parses the embedded translation files.
func NewBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.Persian)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, lang := range []string{Fa, En} {
		name := lang + ".json"
		data, err := localedata.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("locale: read %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", name, err)
		}
	}
	return bundle, nil
}

// NewLocalizer returns a Localizer for lang; unknown languages fall back to Persian.
func NewLocalizer(lang string) (Localizer, error) {
	bundle, err := NewBundle()
	if err != nil {
		return nil, err
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != En {
		lang = Fa
	}
	return &localizer{lang: lang, Localizer: i18n.NewLocalizer(bundle, lang)}, nil
}

func (l *localizer) Lang() string { return l.lang }

func (l *localizer) MustLocalize(id string) string {
	return l.Localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: id})
}

func (l *localizer) MustLocalizeWithTemplate(id string, fields ...string) string {
	td := make(map[string]any, len(fields))
	for i, f := range fields {
		td["f"+strconv.Itoa(i+1)] = f
	}
	return l.Localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: id, TemplateData: td})
}
