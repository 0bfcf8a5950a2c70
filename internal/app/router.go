package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/memberdash/internal/auth"
	"github.com/odyssey-erp/memberdash/internal/observability"
	"github.com/odyssey-erp/memberdash/internal/overview"
	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/users"
	"github.com/odyssey-erp/memberdash/internal/view"
	"github.com/odyssey-erp/memberdash/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Templates       *view.Engine
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	Provider        *auth.Provider
	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	OverviewHandler *overview.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with dashboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// "/" is the sign-in page; signed-in users go straight to the member list.
	r.With(params.Provider.RedirectAuthenticated).Get("/", params.AuthHandler.ShowLogin)
	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(params.Provider.RequireAuth)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, users.Path, http.StatusSeeOther)
		})
		r.Route("/users", params.UsersHandler.MountRoutes)
		if params.OverviewHandler != nil {
			r.Route("/overview", params.OverviewHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches embedded assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
