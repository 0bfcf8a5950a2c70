package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/memberdash/internal/app"
	"github.com/odyssey-erp/memberdash/internal/auth"
	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/observability"
	"github.com/odyssey-erp/memberdash/internal/overview"
	"github.com/odyssey-erp/memberdash/internal/platform/cache"
	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/users"
	"github.com/odyssey-erp/memberdash/internal/view"
	_ "github.com/odyssey-erp/memberdash/testing"
)

const sessionCookie = "memberdash_session"

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// fakeAPI answers the account and member list endpoints.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body.Password != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"email":"grace@example.com","name":"Grace Hopper","role":"ADMIN","token":"api-token"}`))
	})
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body.Email == "grace@example.com" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":2}`))
	})
	mux.HandleFunc("/api/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer api-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"users":[
				{"id":"1","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","mobile":"555-0100","status":"ACTIVE"},
				{"id":"2","firstName":"Alan","lastName":"Turing","email":"alan@example.com","mobile":"555-0101","status":"PENDING"}
			],
			"counts":{"activeCount":1,"pendingCount":1,"inactiveCount":0},
			"pagination":{"total":2,"page":1,"limit":10,"totalPages":1}
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	api := fakeAPI(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, LoginRateLimit: 100}
	templates, err := view.NewEngine()
	require.NoError(t, err)

	sessions := shared.NewSessionManager(client, sessionCookie, "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	metrics := observability.NewMetrics()
	collectionClient := collection.NewClient(api.URL, collection.WithHTTPClient(api.Client()), collection.WithObserver(metrics))

	authHandler := auth.NewHandler(nil, auth.NewRemoteClient(api.URL, "", api.Client()), nil, templates, sessions, csrf, cfg.LoginRateLimit)
	registry := users.NewRegistry(collectionClient, users.RegistryConfig{Observer: metrics, Gauge: metrics})
	t.Cleanup(registry.Close)
	authHandler.OnSessionEnd(registry.Release)

	overviewService := overview.NewService(collectionClient, cache.NewJSON(client, "memberdash", time.Minute), nil, metrics)
	provider := auth.NewProvider()

	return app.NewRouter(app.RouterParams{
		Config:          cfg,
		Templates:       templates,
		SessionManager:  sessions,
		CSRFManager:     csrf,
		Provider:        provider,
		AuthHandler:     authHandler,
		UsersHandler:    users.NewHandler(nil, registry, provider.Token, templates, csrf),
		OverviewHandler: overview.NewHandler(nil, overviewService, templates, csrf),
		Metrics:         metrics,
	})
}

// browser carries the session cookie between requests.
type browser struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rr := httptest.NewRecorder()
	b.router.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			b.cookie = c
		}
	}
	return rr
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) csrfToken() string {
	b.t.Helper()
	rr := b.get("/")
	require.Equal(b.t, http.StatusOK, rr.Code)
	m := csrfPattern.FindStringSubmatch(rr.Body.String())
	require.Len(b.t, m, 2, "login page must embed a csrf token")
	return m[1]
}

func TestHealthz(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	rr := b.get("/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestDashboardRequiresLogin(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	rr := b.get("/dashboard/users")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	rr := b.post("/auth/login", url.Values{"email": {"grace@example.com"}, "password": {"secret123"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLoginRejectedShowsMessage(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	token := b.csrfToken()

	rr := b.post("/auth/login", url.Values{"csrf_token": {token}, "email": {"grace@example.com"}, "password": {"wrong-pass"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email or password")
}

func TestLoginThenBrowseMembers(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	token := b.csrfToken()
	anonymous := b.cookie.Value

	rr := b.post("/auth/login", url.Values{"csrf_token": {token}, "email": {"grace@example.com"}, "password": {"secret123"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.HomePath, rr.Header().Get("Location"))
	assert.NotEqual(t, anonymous, b.cookie.Value, "login must issue a fresh session id")

	rr = b.get("/")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.HomePath, rr.Header().Get("Location"))

	rr = b.get("/dashboard/users")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Members")
	assert.Contains(t, rr.Body.String(), "Welcome back, Grace Hopper")

	var state users.StateResponse
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/users/state", nil)
		req.Header.Set("Accept", "application/json")
		rr := b.do(req)
		if rr.Code != http.StatusOK {
			return false
		}
		state = users.StateResponse{}
		return json.Unmarshal(rr.Body.Bytes(), &state) == nil && !state.Loading
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, state.Rows, 2)
	assert.Equal(t, 1, state.Counts.ActiveCount)

	rr = b.get("/dashboard/users")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Ada Lovelace")

	rr = b.get("/dashboard/overview")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Active Users")
}

func signupForm(token, email string) url.Values {
	return url.Values{
		"csrf_token":      {token},
		"firstName":       {"Katherine"},
		"lastName":        {"Johnson"},
		"email":           {email},
		"password":        {"Orbit#1962"},
		"confirmPassword": {"Orbit#1962"},
	}
}

func TestSignupThenReturnToLogin(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	token := b.csrfToken()

	rr := b.get("/auth/signup")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Sign Up")

	rr = b.post("/auth/signup", signupForm(token, "katherine@example.com"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = b.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), auth.MessageRegistered)
}

func TestSignupRejectedShowsMessage(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	token := b.csrfToken()

	rr := b.post("/auth/signup", signupForm(token, "grace@example.com"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email already registered")
}

func TestSignupRequiresCSRFToken(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	rr := b.post("/auth/signup", signupForm("", "katherine@example.com"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestForgotPasswordFlashesConfirmation(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	token := b.csrfToken()

	rr := b.post("/auth/forgot-password", url.Values{"csrf_token": {token}, "email": {"grace@example.com"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, auth.ForgotPasswordPath, rr.Header().Get("Location"))

	rr = b.get(auth.ForgotPasswordPath)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), auth.MessageResetSent)
}

func TestStaticAssetsAreCached(t *testing.T) {
	b := &browser{t: t, router: newTestRouter(t)}
	rr := b.get("/static/css/app.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}
