package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/authz"
	"github.com/himalclinic/himalclinic/internal/console"
	"github.com/himalclinic/himalclinic/internal/contacts"
	"github.com/himalclinic/himalclinic/internal/content"
	"github.com/himalclinic/himalclinic/internal/observability"
	"github.com/himalclinic/himalclinic/internal/platform/httpx"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/users"
	"github.com/himalclinic/himalclinic/internal/view"
	"github.com/himalclinic/himalclinic/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Resolver       *auth.Resolver

	AdminLogin      *console.LoginHandler
	ViewerLogin     *console.LoginHandler
	Dashboard       *console.Dashboard
	ContentHandler  *content.Handler
	ContactsHandler *contacts.Handler
	UsersHandler    *users.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with clinic defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Resolver:       params.Resolver,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Handle("/static/*", http.FileServer(http.FS(web.Static)))

	// Public site.
	params.ContentHandler.MountPublicRoutes(r)
	params.ContactsHandler.MountPublicRoutes(r)

	guard := authz.Guard{
		Views:     params.Resolver,
		Templates: params.Templates,
		Logger:    params.Logger,
	}

	// Admin console. Login stays outside the guard; everything else is
	// admin-gated with per-area capabilities.
	r.Route("/admin", func(r chi.Router) {
		params.AdminLogin.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAdmin(authz.CapabilityNone))
			r.Get("/", params.Dashboard.Admin)
		})
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAdmin(authz.CapabilityContent))
			params.ContentHandler.MountAdminRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAdmin(authz.CapabilityContacts))
			params.ContactsHandler.MountConsoleRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(guard.RequireAdmin(authz.CapabilitySuper))
			params.UsersHandler.MountRoutes(r)
		})
	})

	// Viewer console. Authorization-disjoint from the admin console: the
	// guard checks the viewer flag only.
	r.Route("/viewer", func(r chi.Router) {
		params.ViewerLogin.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireViewer())
			r.Get("/", params.Dashboard.Viewer)
			params.ContactsHandler.MountConsoleRoutes(r)
		})
	})

	return r
}
