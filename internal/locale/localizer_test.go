package locale

import (
	"testing"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

func TestEveryKeyTranslated(t *testing.T) {
	bundle, err := NewBundle()
	if err != nil {
		t.Fatal(err)
	}
	for _, lang := range []string{Fa, En} {
		loc := i18n.NewLocalizer(bundle, lang)
		for _, key := range Keys {
			msg, tag, err := loc.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: key})
			if err != nil || msg == "" {
				t.Errorf("%s/%s: %q %v", lang, key, msg, err)
				continue
			}
			if tag.String() != lang {
				t.Errorf("%s/%s resolved from %s", lang, key, tag)
			}
		}
	}
}

func TestTemplateFields(t *testing.T) {
	l, err := NewLocalizer(En)
	if err != nil {
		t.Fatal(err)
	}
	got := l.MustLocalizeWithTemplate(BroadcastCaption, "neo", "42")
	if got != "User @neo (ID: 42) just finished their form!" {
		t.Fatalf("caption = %q", got)
	}
	if got := l.MustLocalizeWithTemplate(UserAdded, "555"); got != "✅ Added 555" {
		t.Fatalf("added = %q", got)
	}
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	l, err := NewLocalizer("de")
	if err != nil {
		t.Fatal(err)
	}
	if l.Lang() != Fa {
		t.Fatalf("lang = %s", l.Lang())
	}
	if got := l.MustLocalize(ButtonCancel); got != "کنسل" {
		t.Fatalf("cancel = %q", got)
	}
}
