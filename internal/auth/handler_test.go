package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/memberdash/internal/auth"
	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/view"
	_ "github.com/odyssey-erp/memberdash/testing"
)

type stubAuthenticator struct {
	identity  shared.Identity
	err       error
	calls     int
	accts     error
	registers []auth.RegisterInput
	resets    []string
}

func (s *stubAuthenticator) Login(ctx context.Context, email, password string) (shared.Identity, error) {
	s.calls++
	if s.err != nil {
		return shared.Identity{}, s.err
	}
	return s.identity, nil
}

func (s *stubAuthenticator) Register(ctx context.Context, in auth.RegisterInput) error {
	s.registers = append(s.registers, in)
	return s.accts
}

func (s *stubAuthenticator) ForgotPassword(ctx context.Context, email string) error {
	s.resets = append(s.resets, email)
	return s.accts
}

type recordingRecorder struct {
	logins  []string
	logouts []string
}

func (r *recordingRecorder) RecordLogin(ctx context.Context, sessionID string, id shared.Identity, expiresAt time.Time, ip, userAgent string) error {
	r.logins = append(r.logins, sessionID)
	return nil
}

func (r *recordingRecorder) RecordLogout(ctx context.Context, sessionID string) error {
	r.logouts = append(r.logouts, sessionID)
	return nil
}

type authFixture struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	authn    *stubAuthenticator
	recorder *recordingRecorder
	ended    []string
}

func newAuthFixture(t *testing.T, authn *stubAuthenticator) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)

	fx := &authFixture{sessions: sessions, authn: authn, recorder: &recordingRecorder{}}
	fx.handler = auth.NewHandler(nil, authn, fx.recorder, templates, sessions, csrf, 0)
	fx.handler.OnSessionEnd(func(id string) { fx.ended = append(fx.ended, id) })
	return fx
}

func (fx *authFixture) request(t *testing.T, method, target string, form url.Values) (*http.Request, *shared.Session) {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	sess, err := fx.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func (fx *authFixture) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", fx.handler.MountRoutes)
	return r
}

func TestShowLoginRendersForm(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, sess := fx.request(t, http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	fx.handler.ShowLogin(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `name="csrf_token" value="`+sess.Get(shared.CSRFSessionKey)+`"`)
	assert.Contains(t, body, `name="email"`)
	assert.Contains(t, body, `name="password"`)
}

func TestLoginValidationErrors(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, _ := fx.request(t, http.MethodPost, "/auth/login", url.Values{"email": {""}, "password": {""}})
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Please enter your email address")
	assert.Contains(t, rr.Body.String(), "Please enter your password")
	assert.Zero(t, fx.authn.calls)
}

func TestLoginShowsRemoteMessage(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{err: &auth.LoginError{Status: http.StatusUnauthorized, Message: "Invalid email or password"}})
	req, sess := fx.request(t, http.MethodPost, "/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"secret123"}})
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email or password")
	assert.Contains(t, rr.Body.String(), `value="ada@example.com"`)
	assert.False(t, sess.Authenticated())
	assert.Empty(t, fx.ended)
}

func TestLoginSuccessRenewsSession(t *testing.T) {
	identity := shared.Identity{ID: "7", Email: "ada@example.com", Name: "Ada", Role: "ADMIN", Token: "tok"}
	fx := newAuthFixture(t, &stubAuthenticator{identity: identity})
	req, sess := fx.request(t, http.MethodPost, "/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"secret123"}})
	previous := sess.ID
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.HomePath, rr.Header().Get("Location"))
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "tok", sess.Token())
	assert.NotEqual(t, previous, sess.ID)
	assert.Equal(t, []string{previous}, fx.ended)
	assert.Equal(t, []string{sess.ID}, fx.recorder.logins)

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Welcome back, Ada", flash.Message)
}

func TestLogoutDestroysSession(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, sess := fx.request(t, http.MethodPost, "/auth/logout", url.Values{})
	sess.SetIdentity(shared.Identity{ID: "7", Token: "tok"})
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.LoginPath, rr.Header().Get("Location"))
	assert.Equal(t, []string{sess.ID}, fx.ended)
	assert.Equal(t, []string{sess.ID}, fx.recorder.logouts)

	commit := httptest.NewRecorder()
	require.NoError(t, fx.sessions.Commit(context.Background(), commit, req, sess))
	cookies := commit.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func validSignup() url.Values {
	return url.Values{
		"firstName":       {"Ada"},
		"lastName":        {"Lovelace"},
		"email":           {" ada@example.com "},
		"password":        {"Engine#1843"},
		"confirmPassword": {"Engine#1843"},
	}
}

func TestShowSignupRendersForm(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, _ := fx.request(t, http.MethodGet, auth.SignupPath, nil)
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `action="/auth/signup"`)
	assert.Contains(t, body, `name="confirmPassword"`)
	assert.Contains(t, body, `name="csrf_token"`)
}

func TestSignupValidation(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(url.Values)
		field string
		want  string
	}{
		{"short first name", func(v url.Values) { v.Set("firstName", "A") }, "firstName", "First name must be at least 2 characters"},
		{"missing last name", func(v url.Values) { v.Set("lastName", "  ") }, "lastName", "Last name is required"},
		{"bad email", func(v url.Values) { v.Set("email", "ada@") }, "email", "Please enter a valid email address"},
		{"short password", func(v url.Values) { v.Set("password", "Aa1@"); v.Set("confirmPassword", "Aa1@") }, "password", "Password must be at least 8 characters"},
		{"weak password", func(v url.Values) { v.Set("password", "engine1843"); v.Set("confirmPassword", "engine1843") }, "password", "Password must contain at least one uppercase letter"},
		{"foreign character", func(v url.Values) { v.Set("password", "Engine#1843 "); v.Set("confirmPassword", "Engine#1843 ") }, "password", "Password must contain at least one uppercase letter"},
		{"mismatch", func(v url.Values) { v.Set("confirmPassword", "Engine#1844") }, "confirmPassword", "Passwords do not match"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newAuthFixture(t, &stubAuthenticator{})
			form := validSignup()
			tc.edit(form)
			req, _ := fx.request(t, http.MethodPost, auth.SignupPath, form)
			rr := httptest.NewRecorder()

			fx.router().ServeHTTP(rr, req)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.want)
			assert.NotContains(t, rr.Body.String(), "Engine#1843")
			assert.Empty(t, fx.authn.registers)
		})
	}
}

func TestSignupSuccessRedirectsToLogin(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, sess := fx.request(t, http.MethodPost, auth.SignupPath, validSignup())
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.LoginPath, rr.Header().Get("Location"))
	require.Len(t, fx.authn.registers, 1)
	assert.Equal(t, auth.RegisterInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "Engine#1843"}, fx.authn.registers[0])
	assert.False(t, sess.Authenticated())

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, auth.MessageRegistered, flash.Message)
}

func TestSignupShowsRemoteMessage(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{accts: &auth.AccountError{Op: "register", Status: http.StatusConflict, Message: "Email already registered"}})
	req, _ := fx.request(t, http.MethodPost, auth.SignupPath, validSignup())
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Email already registered")
	assert.Contains(t, body, `value="Lovelace"`)
}

func TestSignupRedirectsSignedInUsers(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, sess := fx.request(t, http.MethodGet, auth.SignupPath, nil)
	sess.SetIdentity(shared.Identity{ID: "7", Token: "tok"})
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.HomePath, rr.Header().Get("Location"))
}

func TestForgotPasswordSendsInstructions(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, sess := fx.request(t, http.MethodPost, auth.ForgotPasswordPath, url.Values{"email": {"ada@example.com"}})
	rr := httptest.NewRecorder()

	fx.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.ForgotPasswordPath, rr.Header().Get("Location"))
	assert.Equal(t, []string{"ada@example.com"}, fx.authn.resets)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, auth.MessageResetSent, flash.Message)
}

func TestForgotPasswordErrors(t *testing.T) {
	fx := newAuthFixture(t, &stubAuthenticator{})
	req, _ := fx.request(t, http.MethodPost, auth.ForgotPasswordPath, url.Values{"email": {"nope"}})
	rr := httptest.NewRecorder()
	fx.router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Please enter a valid email address")
	assert.Empty(t, fx.authn.resets)

	fx = newAuthFixture(t, &stubAuthenticator{accts: &auth.AccountError{Op: "forgot password", Err: errors.New("dial tcp: refused"), Message: auth.MessageResetFailed}})
	req, _ = fx.request(t, http.MethodPost, auth.ForgotPasswordPath, url.Values{"email": {"ada@example.com"}})
	rr = httptest.NewRecorder()
	fx.router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), auth.MessageResetFailed)
	assert.Contains(t, rr.Body.String(), `value="ada@example.com"`)
}
