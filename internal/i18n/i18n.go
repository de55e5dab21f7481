// Package i18n renders email and notification texts in the client's
// language. Messages are embedded YAML files keyed by message ID.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is used when no locale or an unknown one is requested.
const DefaultLocale = "pt-BR"

// Translator localizes messages. It is safe for concurrent use.
type Translator struct {
	bundle     *i18n.Bundle
	mu         sync.Mutex
	localizers map[string]*i18n.Localizer
	fallback   string
}

// New loads every embedded locale. fallback is the locale used when a
// message is missing in the requested one.
func New(fallback string) (*Translator, error) {
	if fallback == "" {
		fallback = DefaultLocale
	}
	tag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", fallback, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Name(), err)
		}
	}

	return &Translator{
		bundle:     bundle,
		localizers: make(map[string]*i18n.Localizer),
		fallback:   fallback,
	}, nil
}

// Languages lists the loaded locales.
func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

func (t *Translator) localizer(locale string) *i18n.Localizer {
	if locale == "" {
		locale = t.fallback
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.localizers[locale]
	if !ok {
		l = i18n.NewLocalizer(t.bundle, locale, t.fallback)
		t.localizers[locale] = l
	}
	return l
}

// T renders messageID with data in locale. A missing message returns the ID.
func (t *Translator) T(locale, messageID string, data map[string]interface{}) string {
	msg, err := t.localizer(locale).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
