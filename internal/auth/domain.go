package auth

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/memberdash/internal/shared"
)

// Status describes where the current request stands with the session provider.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	// StatusLoading means no session has been resolved for the request yet.
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
)

// Current is the provider's view of the request.
type Current struct {
	Status Status
	User   *shared.Identity
}

// Authenticated reports whether a user with a bearer token is present.
func (c Current) Authenticated() bool {
	return c.Status == StatusAuthenticated && c.User != nil
}

// MessageLoginFailed is shown when the remote endpoint gives no reason.
const MessageLoginFailed = "Failed to login"

// Messages for the sign-up and password reset forms.
const (
	MessageSomethingWrong = "Something went wrong"
	MessageRegisterFailed = "Failed to register"
	MessageRegistered     = "Account created. You can log in now"
	MessageResetFailed    = "Failed to send reset email"
	MessageResetSent      = "Password reset instructions have been sent to your email"
)

// ErrMissingToken is returned when the auth endpoint answers 2xx without a token.
var ErrMissingToken = errors.New("auth: login response carried no token")

// LoginError is a rejected sign-in. Message is safe to show to the user.
type LoginError struct {
	Status  int
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("auth: login rejected (%d): %s", e.Status, e.Message)
	}
	return "auth: login failed: " + e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// UserMessage maps a login error to the text shown on the sign-in form.
func UserMessage(err error) string {
	var loginErr *LoginError
	if errors.As(err, &loginErr) && loginErr.Message != "" {
		return loginErr.Message
	}
	return MessageLoginFailed
}

// AccountError is a failed sign-up or password reset request. Message is
// safe to show to the user.
type AccountError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *AccountError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("auth: %s rejected (%d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("auth: %s failed: %s", e.Op, e.Message)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// AccountMessage maps a sign-up or reset error to form text, falling back
// to fallback when the error carries none.
func AccountMessage(err error, fallback string) string {
	var accountErr *AccountError
	if errors.As(err, &accountErr) && accountErr.Message != "" {
		return accountErr.Message
	}
	return fallback
}
