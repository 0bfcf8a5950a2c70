package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	authenticator  Authenticator
	recorder       Recorder
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	guest          *Provider
	loginLimit     int
	sessionEnded   []func(sessionID string)
	now            func() time.Time
}

// NewHandler constructs a Handler instance. loginLimit caps sign-in,
// sign-up and reset posts per IP per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, authenticator Authenticator, recorder Recorder, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Handler{
		logger:         logger,
		authenticator:  authenticator,
		recorder:       recorder,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      newValidator(),
		guest:          NewProvider(),
		loginLimit:     loginLimit,
		now:            time.Now,
	}
}

// OnSessionEnd registers fn to run when a session signs out or is replaced
// at login.
func (h *Handler) OnSessionEnd(fn func(sessionID string)) {
	if fn != nil {
		h.sessionEnded = append(h.sessionEnded, fn)
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	limited := r
	if h.loginLimit > 0 {
		limited = r.With(httprate.LimitByIP(h.loginLimit, time.Minute))
	}
	limited.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	guest := r.With(h.guest.RedirectAuthenticated)
	guest.Get("/signup", h.showSignup)
	guest.Get("/forgot-password", h.showForgotPassword)
	limited.With(h.guest.RedirectAuthenticated).Post("/signup", h.handleSignup)
	limited.With(h.guest.RedirectAuthenticated).Post("/forgot-password", h.handleForgotPassword)
}

// ShowLogin renders the sign-in page.
func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/login.html", "Log in", loginPageData{Errors: map[string]string{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
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

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form, loginMessages)
	if len(errs) > 0 {
		h.render(w, r, http.StatusBadRequest, "pages/login.html", "Log in", loginPageData{Form: loginForm{Email: form.Email}, Errors: errs})
		return
	}

	identity, err := h.authenticator.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Warn("login rejected", slog.String("email", form.Email), slog.Any("error", err))
		errs["general"] = UserMessage(err)
		h.render(w, r, http.StatusBadRequest, "pages/login.html", "Log in", loginPageData{Form: loginForm{Email: form.Email}, Errors: errs})
		return
	}

	previous := sess.ID
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.endSession(previous)

	sess.SetIdentity(identity)
	if _, err := h.csrfManager.Rotate(r.Context(), sess); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: welcome(identity)})

	expiresAt := h.now().Add(h.sessionManager.TTL())
	if !identity.ExpiresAt.IsZero() && identity.ExpiresAt.Before(expiresAt) {
		expiresAt = identity.ExpiresAt
	}
	if err := h.recorder.RecordLogin(r.Context(), sess.ID, identity, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("record login", slog.Any("error", err))
	}
	h.logger.Info("user signed in", slog.String("user_id", identity.ID), slog.String("role", identity.Role))
	http.Redirect(w, r, HomePath, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.recorder.RecordLogout(r.Context(), sess.ID); err != nil {
			h.logger.Warn("record logout", slog.Any("error", err))
		}
		h.endSession(sess.ID)
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (h *Handler) showSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/signup.html", "Sign up", signupPageData{Errors: map[string]string{}})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		FirstName:       strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:        strings.TrimSpace(r.PostFormValue("lastName")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	// Passwords are never echoed back into the form.
	echo := registerForm{FirstName: form.FirstName, LastName: form.LastName, Email: form.Email}

	errs := h.validate(form, accountMessages)
	if len(errs) > 0 {
		h.render(w, r, http.StatusBadRequest, "pages/signup.html", "Sign up", signupPageData{Form: echo, Errors: errs})
		return
	}

	err := h.authenticator.Register(r.Context(), RegisterInput{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Password:  form.Password,
	})
	if err != nil {
		h.logger.Warn("sign-up rejected", slog.String("email", form.Email), slog.Any("error", err))
		errs["general"] = AccountMessage(err, MessageRegisterFailed)
		h.render(w, r, http.StatusBadRequest, "pages/signup.html", "Sign up", signupPageData{Form: echo, Errors: errs})
		return
	}

	h.logger.Info("account registered", slog.String("email", form.Email))
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: MessageRegistered})
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (h *Handler) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/forgot-password.html", "Reset password", forgotPasswordPageData{Errors: map[string]string{}})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := forgotPasswordForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	errs := h.validate(form, accountMessages)
	if len(errs) > 0 {
		h.render(w, r, http.StatusBadRequest, "pages/forgot-password.html", "Reset password", forgotPasswordPageData{Form: form, Errors: errs})
		return
	}

	if err := h.authenticator.ForgotPassword(r.Context(), form.Email); err != nil {
		h.logger.Warn("password reset rejected", slog.String("email", form.Email), slog.Any("error", err))
		errs["general"] = AccountMessage(err, MessageResetFailed)
		h.render(w, r, http.StatusBadRequest, "pages/forgot-password.html", "Reset password", forgotPasswordPageData{Form: form, Errors: errs})
		return
	}

	h.logger.Info("password reset requested", slog.String("email", form.Email))
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: MessageResetSent})
	}
	http.Redirect(w, r, ForgotPasswordPath, http.StatusSeeOther)
}

func (h *Handler) validate(form any, messages map[string]string) map[string]string {
	errs := make(map[string]string)
	err := h.validator.Struct(form)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["general"] = MessageSomethingWrong
		return errs
	}
	for _, fieldErr := range fieldErrs {
		errs[fieldErr.Field()] = fieldMessage(fieldErr, messages)
	}
	return errs
}

func (h *Handler) endSession(id string) {
	if id == "" {
		return
	}
	for _, fn := range h.sessionEnded {
		fn(id)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, page, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func welcome(id shared.Identity) string {
	if id.Name == "" {
		return "Welcome back"
	}
	return "Welcome back, " + id.Name
}
