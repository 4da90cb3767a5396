package console_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/console"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
	_ "github.com/himalclinic/himalclinic/testing"
)

// stubIdentity verifies one fixed account with a bcrypt hash, the way the
// real store does, and tracks bindings in memory.
type stubIdentity struct {
	principal auth.Principal
	hash      string
	bindings  map[string]string
}

func newStubIdentity(t *testing.T, id, email, password string) *stubIdentity {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &stubIdentity{
		principal: auth.Principal{ID: id, Email: email},
		hash:      string(hashed),
		bindings:  make(map[string]string),
	}
}

func (s *stubIdentity) SignIn(ctx context.Context, email, password string) (auth.Principal, error) {
	if email != s.principal.Email {
		return auth.Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.hash), []byte(password)); err != nil {
		return auth.Principal{}, shared.ErrInvalidCredentials
	}
	return s.principal, nil
}

func (s *stubIdentity) BindSession(ctx context.Context, sessionID, principalID string, expiresAt time.Time) error {
	s.bindings[sessionID] = principalID
	return nil
}

func (s *stubIdentity) SignOut(ctx context.Context, sessionID string) error {
	delete(s.bindings, sessionID)
	return nil
}

func (s *stubIdentity) CurrentPrincipal(ctx context.Context, sessionID string) (*auth.Principal, error) {
	if _, ok := s.bindings[sessionID]; !ok {
		return nil, nil
	}
	p := s.principal
	return &p, nil
}

type stubDirectory struct {
	roles []auth.RoleAssignment
}

func (s *stubDirectory) RolesFor(ctx context.Context, principalID string) ([]auth.RoleAssignment, error) {
	return s.roles, nil
}

type consoleFixture struct {
	handler  *console.LoginHandler
	sessions *shared.SessionManager
	identity *stubIdentity
	resolver *auth.Resolver
}

func newAdminConsole(t *testing.T, identity *stubIdentity, roles []auth.RoleAssignment) consoleFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	directory := &stubDirectory{roles: roles}
	resolver := auth.NewResolver(identity, directory, nil)
	t.Cleanup(resolver.Close)
	service := auth.NewService(identity, directory, resolver, time.Hour, nil)
	handler := console.NewAdminLogin(nil, service, templates, sessionManager, csrfManager)
	return consoleFixture{handler: handler, sessions: sessionManager, identity: identity, resolver: resolver}
}

func (f consoleFixture) get(t *testing.T, target string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	f.handler.ShowLoginForTest(res, req)
	if err := f.sessions.Commit(context.Background(), res, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func (f consoleFixture) post(t *testing.T, sess *shared.Session, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: sess.ID})

	loaded, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session for post: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), loaded))
	res := httptest.NewRecorder()
	f.handler.HandleLoginForTest(res, req)
	if err := f.sessions.Commit(context.Background(), res, loaded); err != nil {
		t.Fatalf("commit session post: %v", err)
	}
	return res
}

func adminRoles(id string) []auth.RoleAssignment {
	return []auth.RoleAssignment{{PrincipalID: id, Role: auth.RoleAdmin}}
}

func TestLoginPage(t *testing.T) {
	fixture := newAdminConsole(t, newStubIdentity(t, "u1", "doc@test.local", "correctpass"), adminRoles("u1"))

	res, _ := fixture.get(t, "/admin/login")
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestLoginSuccessRedirectsToConsole(t *testing.T) {
	fixture := newAdminConsole(t, newStubIdentity(t, "u1", "doc@test.local", "correctpass"), adminRoles("u1"))
	_, sess := fixture.get(t, "/admin/login")

	form := url.Values{}
	form.Set("email", "doc@test.local")
	form.Set("password", "correctpass")

	res := fixture.post(t, sess, form)
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if got := res.Header().Get("Location"); got != "/admin" {
		t.Fatalf("expected redirect to /admin, got %q", got)
	}
	if _, bound := fixture.identity.bindings[sess.ID]; !bound {
		t.Fatalf("successful login must bind the session")
	}
	if v := fixture.resolver.View(sess.ID); v.Loading() || !v.Snapshot.IsAdmin() {
		t.Fatalf("session must resolve as admin after login, got %+v", v)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	fixture := newAdminConsole(t, newStubIdentity(t, "u1", "doc@test.local", "correctpass"), adminRoles("u1"))
	_, sess := fixture.get(t, "/admin/login")

	form := url.Values{}
	form.Set("email", "doc@test.local")
	form.Set("password", "wrongpass")

	res := fixture.post(t, sess, form)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Email or password is incorrect") {
		t.Fatalf("expected inline credential error")
	}
}

func TestLoginWrongConsoleSignsBackOut(t *testing.T) {
	// A viewer account with perfectly valid credentials tries the admin
	// console. The form must reject, and no trace of the attempt may remain.
	identity := newStubIdentity(t, "u2", "viewer@test.local", "correctpass")
	fixture := newAdminConsole(t, identity, []auth.RoleAssignment{
		{PrincipalID: "u2", Role: auth.RoleViewer},
	})
	_, sess := fixture.get(t, "/admin/login")

	form := url.Values{}
	form.Set("email", "viewer@test.local")
	form.Set("password", "correctpass")

	res := fixture.post(t, sess, form)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "not authorized for this console") {
		t.Fatalf("expected mismatch message in response")
	}
	if _, bound := identity.bindings[sess.ID]; bound {
		t.Fatalf("mismatch must leave no session binding behind")
	}
	if v := fixture.resolver.View(sess.ID); v.Loading() || v.Snapshot.User != nil {
		t.Fatalf("session must resolve signed out after mismatch, got %+v", v)
	}
}

func TestLoginNextTargetIsSanitized(t *testing.T) {
	fixture := newAdminConsole(t, newStubIdentity(t, "u1", "doc@test.local", "correctpass"), adminRoles("u1"))

	cases := map[string]string{
		"/admin/posts":            "/admin/posts",
		"https://evil.test/phish": "/admin",
		"//evil.test":             "/admin",
		"relative/path":           "/admin",
	}
	for next, want := range cases {
		_, sess := fixture.get(t, "/admin/login")
		form := url.Values{}
		form.Set("email", "doc@test.local")
		form.Set("password", "correctpass")
		form.Set("next", next)

		res := fixture.post(t, sess, form)
		if res.Code != http.StatusSeeOther {
			t.Fatalf("next %q: expected 303, got %d", next, res.Code)
		}
		if got := res.Header().Get("Location"); got != want {
			t.Fatalf("next %q: expected redirect to %q, got %q", next, want, got)
		}
	}
}

func TestLoginMissingFieldsRerendersForm(t *testing.T) {
	fixture := newAdminConsole(t, newStubIdentity(t, "u1", "doc@test.local", "correctpass"), adminRoles("u1"))
	_, sess := fixture.get(t, "/admin/login")

	form := url.Values{}
	form.Set("email", "not-an-email")

	res := fixture.post(t, sess, form)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected re-rendered form")
	}
	if _, bound := fixture.identity.bindings[sess.ID]; bound {
		t.Fatalf("invalid form must not attempt a login")
	}
}
