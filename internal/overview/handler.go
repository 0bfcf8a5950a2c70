package overview

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/liststate"
	"github.com/odyssey-erp/memberdash/internal/platform/httpx"
	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/view"
)

// Path is where the overview page is mounted.
const Path = "/dashboard/overview"

// Handler serves the overview page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers overview routes. Callers mount it behind the auth guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/refresh", h.refresh)
}

// Card is one stat tile.
type Card struct {
	Title string
	Value int
	Class string
}

type pageData struct {
	Summary Summary
	Cards   []Card
	Chart   template.HTML
	Error   string
	Expired bool
}

func cards(s Summary) []Card {
	return []Card{
		{Title: "Total Users", Value: s.Total, Class: "card-total"},
		{Title: "Active Users", Value: s.Active, Class: "card-active"},
		{Title: "Inactive Users", Value: s.Inactive, Class: "card-inactive"},
		{Title: "Pending Users", Value: s.Pending, Class: "card-pending"},
	}
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	summary, err := h.service.Summary(r.Context(), userKey(id), id.Token)
	data := pageData{Summary: summary}
	status := http.StatusOK
	if err != nil {
		h.logger.Warn("load overview", slog.String("user_id", id.ID), slog.Any("error", err))
		data.Error = liststate.UserMessage(err)
		data.Expired = collection.IsAuth(err)
		status = http.StatusBadGateway
	}
	data.Cards = cards(summary)
	chart, chartErr := RenderBars("Members by status", StatusBars(summary))
	if chartErr != nil {
		h.logger.Error("render overview chart", slog.Any("error", chartErr))
	}
	data.Chart = chart

	if httpx.WantsJSON(r) {
		if err != nil {
			httpx.Problem(w, status, "Overview Unavailable", data.Error)
			return
		}
		httpx.JSON(w, http.StatusOK, summary)
		return
	}
	h.render(w, r, status, id, data)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := h.service.Invalidate(r.Context(), userKey(id)); err != nil {
		h.logger.Warn("invalidate overview", slog.Any("error", err))
	}
	http.Redirect(w, r, Path, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, id shared.Identity, data pageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Overview",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: Path,
		User:        &id,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/overview.html", viewData); err != nil {
		h.logger.Error("render overview", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// userKey scopes cached counts to the signed-in user; the id falls back to
// the email for backends that omit it.
func userKey(id shared.Identity) string {
	if id.ID != "" {
		return id.ID
	}
	return id.Email
}
