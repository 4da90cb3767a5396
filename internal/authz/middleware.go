package authz

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
)

// awaitBudget bounds how long a request waits for session resolution before
// falling back to the loading page. A hung identity source keeps showing the
// loading page indefinitely, which fails safe.
const awaitBudget = 3 * time.Second

// ViewSource supplies resolved session views. *auth.Resolver satisfies it.
type ViewSource interface {
	Await(ctx context.Context, sessionID string) auth.View
}

// Guard translates pure guard decisions into HTTP navigation.
type Guard struct {
	Views     ViewSource
	Templates *view.Engine
	Logger    *slog.Logger
}

// RequireAdmin wraps admin console screens, optionally demanding a capability.
func (g Guard) RequireAdmin(capability Capability) func(http.Handler) http.Handler {
	return g.middleware(func(v auth.View, requested string) Decision {
		return DecideAdmin(v, capability, requested)
	})
}

// RequireViewer wraps viewer console screens.
func (g Guard) RequireViewer() func(http.Handler) http.Handler {
	return g.middleware(DecideViewer)
}

func (g Guard) middleware(decide func(auth.View, string) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := g.await(r)
			switch d := decide(v, r.URL.RequestURI()); d.Kind {
			case DecisionAllow:
				next.ServeHTTP(w, r.WithContext(auth.ContextWithView(r.Context(), v)))
			case DecisionRedirect:
				location := d.Location
				if d.ReturnTo != "" {
					location += "?next=" + url.QueryEscape(d.ReturnTo)
				}
				http.Redirect(w, r, location, http.StatusSeeOther)
			case DecisionLoading:
				g.renderLoading(w, r)
			}
		})
	}
}

func (g Guard) await(r *http.Request) auth.View {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return auth.View{State: auth.StateUnresolved}
	}
	ctx, cancel := context.WithTimeout(r.Context(), awaitBudget)
	defer cancel()
	return g.Views.Await(ctx, sess.ID)
}

func (g Guard) renderLoading(w http.ResponseWriter, r *http.Request) {
	// Nudge the browser to retry once resolution has had time to settle.
	w.Header().Set("Refresh", "2")
	data := view.TemplateData{Title: "Loading", CurrentPath: r.URL.Path}
	if err := g.Templates.Render(w, "pages/loading.html", data); err != nil {
		if g.Logger != nil {
			g.Logger.Error("render loading", slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}
