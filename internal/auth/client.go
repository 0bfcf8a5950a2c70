package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/memberdash/internal/shared"
)

// Remote auth routes.
const (
	DefaultLoginPath          = "/api/auth/login"
	DefaultRegisterPath       = "/api/auth/register"
	DefaultForgotPasswordPath = "/api/auth/forgot-password"
)

// Authenticator is the remote account API: sign-in, sign-up and password
// reset requests.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (shared.Identity, error)
	Register(ctx context.Context, in RegisterInput) error
	ForgotPassword(ctx context.Context, email string) error
}

// RegisterInput is the sign-up payload. The repeated password never leaves
// the form.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RemoteClient signs users in against the remote API.
type RemoteClient struct {
	baseURL    string
	path       string
	httpClient *http.Client
}

// NewRemoteClient constructs a RemoteClient. A nil httpClient gets a 30s timeout.
func NewRemoteClient(baseURL, path string, httpClient *http.Client) *RemoteClient {
	if path == "" {
		path = DefaultLoginPath
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       path,
		httpClient: httpClient,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    json.RawMessage `json:"id"`
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  string          `json:"role"`
	Token string          `json:"token"`
	Photo string          `json:"photo"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login posts the credentials and returns the identity with its token expiry.
func (c *RemoteClient) Login(ctx context.Context, email, password string) (shared.Identity, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return shared.Identity{}, fmt.Errorf("auth: encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return shared.Identity{}, fmt.Errorf("auth: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.Identity{}, &LoginError{Message: MessageLoginFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readMessage(resp.Body)
		if msg == "" {
			msg = MessageLoginFailed
		}
		return shared.Identity{}, &LoginError{Status: resp.StatusCode, Message: msg}
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return shared.Identity{}, &LoginError{Status: resp.StatusCode, Message: MessageLoginFailed, Err: err}
	}
	if payload.Token == "" {
		return shared.Identity{}, &LoginError{Status: resp.StatusCode, Message: MessageLoginFailed, Err: ErrMissingToken}
	}

	id := shared.Identity{
		ID:    rawID(payload.ID),
		Email: payload.Email,
		Name:  payload.Name,
		Role:  payload.Role,
		Token: payload.Token,
		Photo: payload.Photo,
	}
	if exp, err := tokenExpiry(payload.Token); err == nil {
		id.ExpiresAt = exp
	}
	return id, nil
}

// Register creates an account. The new user signs in separately.
func (c *RemoteClient) Register(ctx context.Context, in RegisterInput) error {
	return c.post(ctx, "register", DefaultRegisterPath, in, MessageRegisterFailed)
}

// ForgotPassword asks the remote API to mail reset instructions to email.
func (c *RemoteClient) ForgotPassword(ctx context.Context, email string) error {
	return c.post(ctx, "forgot password", DefaultForgotPasswordPath, struct {
		Email string `json:"email"`
	}{Email: email}, MessageResetFailed)
}

// post sends payload and discards any 2xx body. Transport failures carry
// fallback; rejections carry the server message or MessageSomethingWrong.
func (c *RemoteClient) post(ctx context.Context, op, path string, payload any, fallback string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("auth: encode %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("auth: build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AccountError{Op: op, Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readMessage(resp.Body)
		if msg == "" {
			msg = MessageSomethingWrong
		}
		return &AccountError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

func readMessage(r io.Reader) string {
	var payload messageResponse
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}

// rawID accepts numeric or string ids.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}

var _ Authenticator = (*RemoteClient)(nil)
