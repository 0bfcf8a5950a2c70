package auth

import (
	"net/http"

	"github.com/odyssey-erp/memberdash/internal/platform/httpx"
	"github.com/odyssey-erp/memberdash/internal/shared"
)

// LoginPath is where signed-out browsers are sent.
const LoginPath = "/"

// HomePath is the landing page for signed-in users.
const HomePath = "/dashboard/users"

// Guest-only account pages.
const (
	SignupPath         = "/auth/signup"
	ForgotPasswordPath = "/auth/forgot-password"
)

// RequireAuth rejects requests without a signed-in user. Browsers are
// redirected to the sign-in page; JSON clients get a 401 problem.
func (p *Provider) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := p.Current(r.Context())
		if !cur.Authenticated() {
			if httpx.WantsJSON(r) {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), *cur.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RedirectAuthenticated sends signed-in users away from the sign-in page.
func (p *Provider) RedirectAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.Current(r.Context()).Authenticated() {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
