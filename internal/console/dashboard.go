package console

import (
	"log/slog"
	"net/http"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/i18n"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
)

// Dashboard renders the landing pages of both consoles.
type Dashboard struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewDashboard constructs a Dashboard.
func NewDashboard(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager) *Dashboard {
	return &Dashboard{logger: logger, templates: templates, csrf: csrf}
}

type dashboardData struct {
	Email        string
	IsSuperAdmin bool
}

// Admin renders the admin console landing page.
func (d *Dashboard) Admin(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewFromContext(r.Context())
	data := dashboardData{IsSuperAdmin: v.Snapshot.IsSuperAdmin()}
	if v.Snapshot.User != nil {
		data.Email = v.Snapshot.User.Email
	}
	d.render(w, r, "pages/admin_dashboard.html", "Admin Console", data)
}

// Viewer renders the viewer console landing page.
func (d *Dashboard) Viewer(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewFromContext(r.Context())
	data := dashboardData{}
	if v.Snapshot.User != nil {
		data.Email = v.Snapshot.User.Email
	}
	d.render(w, r, "pages/viewer_home.html", "Viewer Console", data)
}

func (d *Dashboard) render(w http.ResponseWriter, r *http.Request, tpl, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := d.csrf.EnsureToken(r.Context(), sess)
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
	if err := d.templates.Render(w, tpl, viewData); err != nil {
		d.logger.Error("render dashboard", slog.Any("error", err))
	}
}
