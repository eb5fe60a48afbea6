package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// Text is a bilingual string. Bengali is the primary language and English the
// secondary one; an empty field means that language is absent.
type Text struct {
	Bn string `json:"bn,omitempty" yaml:"bn,omitempty"`
	En string `json:"en,omitempty" yaml:"en,omitempty"`
}

// IsZero reports whether both languages are absent.
func (t Text) IsZero() bool {
	return t.Bn == "" && t.En == ""
}

// In returns the text for the given language, falling back to the other
// language when the requested side is empty.
func (t Text) In(lang language.Tag) string {
	if lang == language.English {
		if t.En != "" {
			return t.En
		}
		return t.Bn
	}
	if t.Bn != "" {
		return t.Bn
	}
	return t.En
}

// JoinText concatenates the parts per language with a single space, skipping
// empty sides.
func JoinText(parts ...Text) Text {
	bn := make([]string, 0, len(parts))
	en := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p.Bn); s != "" {
			bn = append(bn, s)
		}
		if s := strings.TrimSpace(p.En); s != "" {
			en = append(en, s)
		}
	}
	return Text{Bn: strings.Join(bn, " "), En: strings.Join(en, " ")}
}

var supportedLanguages = language.NewMatcher([]language.Tag{
	language.Bengali, // first entry is the fallback
	language.English,
})

// PreferredLanguage resolves a stored language preference ("bn", "en-GB",
// "bn-BD", ...) to one of the two supported languages. Unknown or empty values
// resolve to Bengali.
func PreferredLanguage(pref string) language.Tag {
	if pref == "" {
		return language.Bengali
	}
	_, idx := language.MatchStrings(supportedLanguages, pref)
	if idx == 1 {
		return language.English
	}
	return language.Bengali
}
