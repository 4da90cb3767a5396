package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTextPick(t *testing.T) {
	full := Text{EN: "About", NE: "परिचय"}
	if got := full.Pick(EN); got != "About" {
		t.Fatalf("expected English text, got %q", got)
	}
	if got := full.Pick(NE); got != "परिचय" {
		t.Fatalf("expected Nepali text, got %q", got)
	}

	// Missing Nepali falls back to English rather than rendering blank.
	partial := Text{EN: "Videos"}
	if got := partial.Pick(NE); got != "Videos" {
		t.Fatalf("expected English fallback, got %q", got)
	}
}

func TestResolvePrecedence(t *testing.T) {
	// Explicit query parameter wins over everything.
	req := httptest.NewRequest(http.MethodGet, "/?lang=ne", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "en"})
	req.Header.Set("Accept-Language", "en-US")
	if got := Resolve(req); got != NE {
		t.Fatalf("query parameter must win, got %q", got)
	}

	// Cookie wins over the Accept-Language header.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "ne"})
	req.Header.Set("Accept-Language", "en-US")
	if got := Resolve(req); got != NE {
		t.Fatalf("cookie must win over header, got %q", got)
	}

	// Header negotiation as the last resort.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ne-NP,ne;q=0.9,en;q=0.5")
	if got := Resolve(req); got != NE {
		t.Fatalf("header negotiation must pick Nepali, got %q", got)
	}

	// Nothing at all defaults to English.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := Resolve(req); got != EN {
		t.Fatalf("default must be English, got %q", got)
	}

	// Junk values are ignored.
	req = httptest.NewRequest(http.MethodGet, "/?lang=de", nil)
	if got := Resolve(req); got != EN {
		t.Fatalf("unknown query language must be ignored, got %q", got)
	}
}

func TestMiddlewarePersistsExplicitChoice(t *testing.T) {
	var seen Lang
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LangFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/?lang=ne", nil)
	res := httptest.NewRecorder()
	Middleware(next).ServeHTTP(res, req)

	if seen != NE {
		t.Fatalf("expected Nepali in context, got %q", seen)
	}
	cookies := res.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == CookieName && c.Value == "ne" {
			found = true
		}
	}
	if !found {
		t.Fatalf("explicit choice must be persisted in the preference cookie")
	}

	// No explicit choice means no cookie write.
	res = httptest.NewRecorder()
	Middleware(next).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(res.Result().Cookies()) != 0 {
		t.Fatalf("implicit resolution must not set a cookie")
	}
}

func TestLangFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := LangFromContext(req.Context()); got != EN {
		t.Fatalf("missing context value must default to English, got %q", got)
	}
}
