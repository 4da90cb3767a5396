// Package console holds the entry points for the two back-office consoles.
// Each login form is a thin caller of the authorization service with its
// console's expected role hard-coded, which is what makes a role mismatch
// detectable at all.
package console

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/i18n"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
)

// LoginHandler serves one console's login and logout endpoints.
type LoginHandler struct {
	logger    *slog.Logger
	service   *auth.Service
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	validator *validator.Validate

	expected auth.Role
	console  string
	landing  string
	login    string
}

// NewAdminLogin constructs the admin console entry point. Every login
// submitted here asserts the admin role regardless of the account's actual
// assignments.
func NewAdminLogin(logger *slog.Logger, service *auth.Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *LoginHandler {
	return &LoginHandler{
		logger:    logger,
		service:   service,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
		expected:  auth.RoleAdmin,
		console:   "Admin Console",
		landing:   "/admin",
		login:     "/admin/login",
	}
}

// NewViewerLogin constructs the viewer console entry point.
func NewViewerLogin(logger *slog.Logger, service *auth.Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *LoginHandler {
	return &LoginHandler{
		logger:    logger,
		service:   service,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
		expected:  auth.RoleViewer,
		console:   "Viewer Console",
		landing:   "/viewer",
		login:     "/viewer/login",
	}
}

// MountRoutes registers login/logout under the console prefix.
func (h *LoginHandler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Console string
	Action  string
	Next    string
	Form    loginForm
	Errors  map[string]string
}

func (h *LoginHandler) showLogin(w http.ResponseWriter, r *http.Request) {
	data := loginPageData{
		Console: h.console,
		Action:  h.login,
		Next:    sanitizeNext(r.URL.Query().Get("next")),
	}
	h.render(w, r, data, http.StatusOK)
}

func (h *LoginHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	next := sanitizeNext(r.PostFormValue("next"))
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = "This field is required"
		}
	}

	if len(errs) == 0 {
		if _, err := h.service.Login(r.Context(), sess.ID, form.Email, form.Password, h.expected); err != nil {
			errs["general"] = shared.UserSafeMessage(err)
		} else {
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
			target := h.landing
			if next != "" {
				target = next
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	data := loginPageData{Console: h.console, Action: h.login, Next: next, Form: form, Errors: errs}
	h.render(w, r, data, http.StatusBadRequest)
}

func (h *LoginHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.Logout(r.Context(), sess.ID); err != nil {
			h.logger.Warn("logout", slog.Any("error", err))
		}
		h.service.Resolver().Forget(sess.ID)
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, h.login, http.StatusSeeOther)
}

func (h *LoginHandler) render(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       h.console,
		Lang:        i18n.LangFromContext(r.Context()),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *LoginHandler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *LoginHandler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// sanitizeNext keeps the post-login return target on-site. Anything that is
// not a plain absolute path is dropped.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	if strings.ContainsAny(next, "\r\n") {
		return ""
	}
	return next
}
