package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/i18n"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
)

// Handler serves the super-admin user management screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers the user management routes. Callers guard the group
// with the super capability.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/roles/grant", h.grantRole)
	r.Post("/{id}/roles/revoke", h.revokeRole)
	r.Post("/{id}/deactivate", h.deactivate)
	r.Post("/{id}/activate", h.activate)
}

type createForm struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,max=120"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"required,oneof=admin viewer"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		h.render(w, r, map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Accounts": accounts}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := createForm{
		Email:    r.PostFormValue("email"),
		Name:     r.PostFormValue("name"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "error", "Email, name, a role and a password of at least 8 characters are required")
		return
	}
	role, _ := auth.ParseRole(form.Role)
	if _, err := h.service.Create(r.Context(), form.Email, form.Name, form.Password, role); err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", "Account created")
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.service.GrantRole, "Role granted")
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.service.RevokeRole, "Role revoked")
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string, role auth.Role) error, message string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	role, ok := auth.ParseRole(r.PostFormValue("role"))
	if id == "" || !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), id, role); err != nil {
		h.logger.Error("change role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", message)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggleActive(w, r, false, "Account deactivated")
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.toggleActive(w, r, true, "Account activated")
}

func (h *Handler) toggleActive(w http.ResponseWriter, r *http.Request, active bool, message string) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		h.logger.Error("toggle account", slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", message)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Users",
		Lang:        i18n.LangFromContext(r.Context()),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/admin_users.html", viewData); err != nil {
		h.logger.Error("render users", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
