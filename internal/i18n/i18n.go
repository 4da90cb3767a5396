// Package i18n resolves the display language for the bilingual site and
// carries English/Nepali text pairs through the view layer.
package i18n

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

// Lang is a supported display language.
type Lang string

const (
	// EN is English, the default language.
	EN Lang = "en"
	// NE is Nepali.
	NE Lang = "ne"
)

// CookieName stores the visitor's language preference.
const CookieName = "clinic_lang"

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Nepali,
})

// Text is a bilingual string pair.
type Text struct {
	EN string `json:"en"`
	NE string `json:"ne"`
}

// Pick returns the text for the requested language, falling back to English
// when the Nepali variant is empty.
func (t Text) Pick(l Lang) string {
	if l == NE && t.NE != "" {
		return t.NE
	}
	return t.EN
}

// Resolve determines the language for a request: explicit ?lang= parameter
// first, then the preference cookie, then Accept-Language negotiation.
func Resolve(r *http.Request) Lang {
	if l, ok := parse(r.URL.Query().Get("lang")); ok {
		return l
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		if l, ok := parse(cookie.Value); ok {
			return l
		}
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return EN
	}
	tag, _, _ := matcher.Match(tags...)
	if base, _ := tag.Base(); base.String() == "ne" {
		return NE
	}
	return EN
}

func parse(v string) (Lang, bool) {
	switch v {
	case string(EN):
		return EN, true
	case string(NE):
		return NE, true
	default:
		return "", false
	}
}

type langContextKey struct{}

// ContextWithLang stores the resolved language in context.
func ContextWithLang(ctx context.Context, l Lang) context.Context {
	return context.WithValue(ctx, langContextKey{}, l)
}

// LangFromContext extracts the language from context, defaulting to English.
func LangFromContext(ctx context.Context) Lang {
	if l, ok := ctx.Value(langContextKey{}).(Lang); ok {
		return l
	}
	return EN
}

// Middleware resolves the request language, persists an explicit choice in
// the preference cookie and stashes the result in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := Resolve(r)
		if chosen := r.URL.Query().Get("lang"); chosen == string(lang) {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    string(lang),
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(ContextWithLang(r.Context(), lang)))
	})
}
