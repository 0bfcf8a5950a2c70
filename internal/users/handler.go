// Package users serves the member list page. Each browser session owns one
// list controller; form posts and script requests are translated into
// controller actions and the page renders the controller's snapshot.
package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/memberdash/internal/listquery"
	"github.com/odyssey-erp/memberdash/internal/liststate"
	"github.com/odyssey-erp/memberdash/internal/platform/httpx"
	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/view"
)

// Path is where the users page is mounted.
const Path = "/dashboard/users"

// loadingRefresh is the meta refresh interval while a fetch is outstanding.
const loadingRefresh = 1

// Handler manages the member list endpoints.
// TokenSource yields the bearer token of the signed-in user, or "".
type TokenSource func(ctx context.Context) string

type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	token     TokenSource
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry, token TokenSource, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, token: token, templates: templates, csrf: csrf, validator: validator.New()}
}

// MountRoutes registers user routes. Callers mount it behind the auth guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/state", h.state)
	r.Post("/search", h.search)
	r.Post("/status", h.status)
	r.Post("/sort", h.sort)
	r.Post("/page", h.page)
	r.Post("/limit", h.limit)
	r.Post("/refresh", h.refresh)
}

type searchForm struct {
	Search string `validate:"max=200"`
}

type statusForm struct {
	Status string `validate:"omitempty,oneof=ALL ACTIVE PENDING INACTIVE"`
}

type sortForm struct {
	Field string `validate:"required,oneof=firstName lastName email mobile status"`
}

type pageForm struct {
	Page int `validate:"required,min=1"`
}

type limitForm struct {
	Limit int `validate:"required,oneof=10 25 50 100"`
}

func (h *Handler) controller(r *http.Request) (*liststate.Controller, shared.Identity, error) {
	sess := shared.SessionFromContext(r.Context())
	id, ok := shared.IdentityFromContext(r.Context())
	if sess == nil || !ok {
		return nil, shared.Identity{}, shared.ErrUnauthenticated
	}
	token := h.token(r.Context())
	if token == "" {
		return nil, shared.Identity{}, shared.ErrUnauthenticated
	}
	return h.registry.Acquire(sess.ID, token), id, nil
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctrl, id, err := h.controller(r)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	snap := ctrl.Snapshot()
	data := view.TemplateData{
		Title:       "Members",
		CurrentPath: Path,
		User:        &id,
		Data:        newPageView(snap),
	}
	if snap.Loading {
		data.Refresh = loadingRefresh
	}
	h.render(w, r, data)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	ctrl, _, err := h.controller(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, newStateResponse(ctrl.Snapshot()))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	form := searchForm{Search: r.PostFormValue("search")}
	h.act(w, r, form, func(c *liststate.Controller) error { return c.OnSearchChange(form.Search) })
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	form := statusForm{Status: strings.ToUpper(strings.TrimSpace(r.PostFormValue("status")))}
	h.act(w, r, form, func(c *liststate.Controller) error {
		st, err := listquery.ParseStatus(form.Status)
		if err != nil {
			return err
		}
		return c.OnStatusChange(st)
	})
}

func (h *Handler) sort(w http.ResponseWriter, r *http.Request) {
	form := sortForm{Field: strings.TrimSpace(r.PostFormValue("field"))}
	h.act(w, r, form, func(c *liststate.Controller) error { return c.OnSortToggle(form.Field) })
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	form := pageForm{Page: atoi(r.PostFormValue("page"))}
	h.act(w, r, form, func(c *liststate.Controller) error { return c.OnPageChange(form.Page) })
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request) {
	form := limitForm{Limit: atoi(r.PostFormValue("limit"))}
	h.act(w, r, form, func(c *liststate.Controller) error { return c.OnLimitChange(form.Limit) })
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, nil, func(c *liststate.Controller) error { return c.Refresh() })
}

// act validates form, applies fn to the session's controller and answers
// with a redirect or, for script clients, the JSON snapshot.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, form any, fn func(*liststate.Controller) error) {
	if form != nil {
		if fields := h.validate(form); len(fields) > 0 {
			h.reject(w, r, fields)
			return
		}
	}
	ctrl, _, err := h.controller(r)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := fn(ctrl); err != nil {
		h.logger.Debug("list action rejected", slog.Any("error", err))
		h.reject(w, r, map[string]string{"general": actionMessage(err)})
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusAccepted, newStateResponse(ctrl.Snapshot()))
		return
	}
	http.Redirect(w, r, Path, http.StatusSeeOther)
}

func (h *Handler) validate(form any) map[string]string {
	err := h.validator.Struct(form)
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		fields["general"] = err.Error()
		return fields
	}
	for _, fe := range fieldErrs {
		fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return fields
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	if httpx.WantsJSON(r) {
		httpx.ValidationProblem(w, fields)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		for _, msg := range fields {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: msg})
		}
	}
	http.Redirect(w, r, Path, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data view.TemplateData) {
	sess := shared.SessionFromContext(r.Context())
	data.CSRFToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	if sess != nil {
		data.Flash = sess.PopFlash()
	}
	if err := h.templates.Render(w, "pages/users.html", data); err != nil {
		h.logger.Error("render users", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Search":
		return "Search must be at most 200 characters"
	case "Status":
		return "Unknown status filter"
	case "Field":
		return "Column cannot be sorted"
	case "Page":
		return "Page must be a positive number"
	case "Limit":
		return "Rows per page must be one of 10, 25, 50 or 100"
	}
	return fe.Error()
}

func actionMessage(err error) string {
	switch {
	case errors.Is(err, liststate.ErrPageOutOfRange):
		return "That page does not exist"
	case errors.Is(err, liststate.ErrClosed):
		return "The list was closed, reload the page"
	case errors.Is(err, listquery.ErrInvalidStatus):
		return "Unknown status filter"
	}
	return "Request could not be applied"
}

func atoi(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
