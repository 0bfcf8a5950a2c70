package shared

import "errors"

var (
	// ErrSessionMissing indicates the request carried no loaded session.
	ErrSessionMissing = errors.New("session missing")
	// ErrUnauthenticated indicates a dashboard route was hit without a signed-in user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
