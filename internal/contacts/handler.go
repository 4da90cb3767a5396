package contacts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/i18n"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
)

// Handler serves the public intake form and the console contact lists.
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

// MountPublicRoutes registers the intake form.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/contact", h.showForm)
	r.Post("/contact", h.handleSubmit)
}

// MountConsoleRoutes registers the contact list screens. Callers guard the
// group; the list uses whichever principal the guard resolved.
func (h *Handler) MountConsoleRoutes(r chi.Router) {
	r.Get("/contacts", h.listContacts)
	r.Post("/contacts/{id}/viewed", h.markViewed)
}

type contactForm struct {
	Name    string `validate:"required,max=120"`
	Email   string `validate:"required,email"`
	Phone   string `validate:"max=32"`
	Message string `validate:"required,max=4000"`
}

type contactPageData struct {
	Form      contactForm
	Errors    map[string]string
	Submitted bool
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, contactPageData{}, http.StatusOK)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := contactForm{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Phone:   r.PostFormValue("phone"),
		Message: r.PostFormValue("message"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = "Please check this field"
		}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, contactPageData{Form: form, Errors: errs}, http.StatusBadRequest)
		return
	}

	_, err := h.service.Submit(r.Context(), Contact{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Message: form.Message,
	})
	if err != nil {
		h.logger.Error("submit contact", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
		h.renderForm(w, r, contactPageData{Form: form, Errors: errs}, http.StatusInternalServerError)
		return
	}
	h.renderForm(w, r, contactPageData{Submitted: true}, http.StatusOK)
}

func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(r)
	if principal == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	contacts, err := h.service.ListFor(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("list contacts", slog.Any("error", err))
		h.render(w, r, "pages/contacts_list.html", "Contacts", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/contacts_list.html", "Contacts", map[string]any{
		"Contacts": contacts,
		"BasePath": basePath(r.URL.Path),
	}, http.StatusOK)
}

func (h *Handler) markViewed(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(r)
	if principal == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.service.MarkViewed(r.Context(), id, principal.ID); err != nil {
		h.logger.Error("mark contact viewed", slog.Any("error", err))
	}
	http.Redirect(w, r, basePath(r.URL.Path), http.StatusSeeOther)
}

func (h *Handler) principal(r *http.Request) *auth.Principal {
	return auth.ViewFromContext(r.Context()).Snapshot.User
}

// basePath maps a console subpath back to its contact list, so the same
// handler serves /admin/contacts and /viewer/contacts.
func basePath(path string) string {
	if len(path) >= len("/viewer") && path[:len("/viewer")] == "/viewer" {
		return "/viewer/contacts"
	}
	return "/admin/contacts"
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, data contactPageData, status int) {
	h.render(w, r, "pages/contact.html", "Contact", data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		Lang:        i18n.LangFromContext(r.Context()),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}
